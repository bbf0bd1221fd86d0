// Package identity generates Experience Cloud IDs (ECIDs).
//
// An ECID is the decimal rendering of a 128-bit value read as two big-endian
// signed 64-bit halves. Random ECIDs come from a UUID v4; deterministic ECIDs
// come from the MD5 of "orgID:externalID" so the same first-party id always
// maps to the same visitor.
package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"odd-hq/decisioning/pkg/hashing"
)

// ErrDependencyNotRegistered is returned when a generator is used without a
// randomness source or hash function.
var ErrDependencyNotRegistered = errors.New("instance not found")

const (
	// sectionLength is the zero-padded width of each half of a deterministic ECID.
	sectionLength = 19

	dependencyRNG = "RNG"
	dependencyMD5 = "MD5"
)

// Generator produces UUIDs and ECIDs from injected dependencies.
type Generator struct {
	rand io.Reader
	md5  func(string) string
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandSource sets the randomness source.
func WithRandSource(r io.Reader) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

// WithMD5 sets the hash function used for deterministic ECIDs. It must return
// a 32 character hex digest.
func WithMD5(fn func(string) string) Option {
	return func(g *Generator) {
		g.md5 = fn
	}
}

// NewGenerator creates a Generator backed by crypto/rand and MD5 unless
// overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rand: rand.Reader,
		md5:  hashing.MD5Hex,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// UUID returns a random version 4 UUID in lowercase dashed form.
func (g *Generator) UUID() (string, error) {
	if g == nil || g.rand == nil {
		return "", notRegistered(dependencyRNG)
	}
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

// Random returns an ECID built from a fresh UUID v4. Signs are stripped from
// each half, and halves are not padded.
func (g *Generator) Random() (string, error) {
	id, err := g.UUID()
	if err != nil {
		return "", err
	}
	high, low, err := splitUUID(id)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(strconv.FormatInt(high, 10), "-", "") +
		strings.ReplaceAll(strconv.FormatInt(low, 10), "-", ""), nil
}

// FromExternalID derives an ECID from an organization and an external
// (first-party) id. The result only depends on its inputs.
func (g *Generator) FromExternalID(orgID, externalID string) (string, error) {
	if g == nil || g.md5 == nil {
		return "", notRegistered(dependencyMD5)
	}
	high, low, err := splitUUID(g.md5(orgID + ":" + externalID))
	if err != nil {
		return "", err
	}
	return pad(uint64(high)&math.MaxInt64) + pad(uint64(low)&math.MaxInt64), nil
}

// splitUUID reads the 32 hex digits of a UUID (dashes optional) as two
// big-endian int64 values.
func splitUUID(s string) (int64, int64, error) {
	raw, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid uuid %q: %w", s, err)
	}
	if len(raw) != 16 {
		return 0, 0, fmt.Errorf("invalid uuid %q: expected 16 bytes, got %d", s, len(raw))
	}
	high := int64(binary.BigEndian.Uint64(raw[:8]))
	low := int64(binary.BigEndian.Uint64(raw[8:]))
	return high, low, nil
}

func pad(v uint64) string {
	s := strconv.FormatUint(v, 10)
	if len(s) >= sectionLength {
		return s
	}
	return strings.Repeat("0", sectionLength-len(s)) + s
}

func notRegistered(name string) error {
	return fmt.Errorf("%w: %s", ErrDependencyNotRegistered, name)
}
