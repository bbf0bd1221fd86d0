package history

// schema creates the aggregated event table.
const schema = `
CREATE TABLE IF NOT EXISTS history_events (
    ecid       TEXT    NOT NULL,
    event_type TEXT    NOT NULL,
    event_id   TEXT    NOT NULL,
    payload    TEXT    NOT NULL,
    first_seen INTEGER NOT NULL,
    last_seen  INTEGER NOT NULL,
    count      INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (ecid, event_type, event_id)
);

CREATE INDEX IF NOT EXISTS idx_history_events_last_seen ON history_events(last_seen);
`

const (
	upsertEvent = `
INSERT INTO history_events (ecid, event_type, event_id, payload, first_seen, last_seen, count)
VALUES (?, ?, ?, ?, ?, ?, 1)
ON CONFLICT (ecid, event_type, event_id) DO UPDATE SET
    payload   = excluded.payload,
    last_seen = MAX(history_events.last_seen, excluded.last_seen),
    count     = history_events.count + 1`

	selectEvents = `
SELECT event_type, event_id, payload, last_seen, count
FROM history_events
WHERE ecid = ?`

	deleteBefore = `DELETE FROM history_events WHERE last_seen < ?`
)
