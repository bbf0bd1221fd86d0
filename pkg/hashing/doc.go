// Package hashing provides the deterministic hash functions used for traffic
// allocation and identity derivation.
//
// Hash32 is a Murmur3-style 32-bit hash computed over UTF-16 code units rather
// than UTF-8 bytes, so that bucket assignments agree with clients that hash
// JavaScript strings. MD5Hex is only used to derive stable identities and has
// no security role.
//
// Cache is a small mutex-guarded memo table. Hasher wraps Hash32 with a Cache
// so repeated lookups of the same bucket id are free; each engine owns its own
// Hasher so independent engines never share state.
package hashing
