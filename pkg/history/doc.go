// Package history stores past events per visitor for historical conditions.
//
// Each recorded Event is aggregated by (ECID, event type, event id) into a
// running count and the time of its latest occurrence. Events returns the
// aggregate shaped as the "events" index read by the rules engine:
//
//	events[eventType][eventID] = {"event": {...}, "timestamp": ms, "count": n}
//
// MemoryStore keeps the index in process. SQLiteStore persists it with either
// the pure Go "sqlite" driver or the cgo "sqlite3" driver. A Pruner drops
// entries older than the retention period on a cron schedule.
package history
