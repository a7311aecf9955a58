package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertArray records the latest observed state for an array
func (d *DB) UpsertArray(devnm, level, state string, raidDisks, degraded int, blocks int64, pattern, metadata string, members []string) error {
	_, err := d.conn.Exec(`
		INSERT INTO arrays (devnm, level, state, raid_disks, degraded, blocks, pattern, metadata, members)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(devnm) DO UPDATE SET
			level = excluded.level,
			state = excluded.state,
			raid_disks = excluded.raid_disks,
			degraded = excluded.degraded,
			blocks = excluded.blocks,
			pattern = excluded.pattern,
			metadata = excluded.metadata,
			members = excluded.members,
			last_seen = CURRENT_TIMESTAMP
	`, devnm, level, state, raidDisks, degraded, blocks, pattern, metadata, strings.Join(members, " "))

	if err != nil {
		return fmt.Errorf("failed to upsert array %s: %w", devnm, err)
	}

	return nil
}

// GetArray returns the stored record for an array, or nil if never seen
func (d *DB) GetArray(devnm string) (*ArrayRecord, error) {
	row := d.conn.QueryRow(`
		SELECT id, devnm, level, state, raid_disks, degraded, blocks, pattern, metadata, members, first_seen, last_seen
		FROM arrays
		WHERE devnm = ?
	`, devnm)

	var rec ArrayRecord
	err := row.Scan(&rec.ID, &rec.Devnm, &rec.Level, &rec.State, &rec.RaidDisks,
		&rec.Degraded, &rec.Blocks, &rec.Pattern, &rec.Metadata, &rec.Members,
		&rec.FirstSeen, &rec.LastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query array %s: %w", devnm, err)
	}

	return &rec, nil
}

// RecordEvent logs an array state transition event
func (d *DB) RecordEvent(devnm, eventType, oldState, newState, details string) error {
	_, err := d.conn.Exec(`
		INSERT INTO array_events (devnm, event_type, old_state, new_state, details)
		VALUES (?, ?, ?, ?, ?)
	`, devnm, eventType, oldState, newState, details)

	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return nil
}

// RecentEvents returns the most recent events across all arrays
func (d *DB) RecentEvents(limit int) ([]*ArrayEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.conn.Query(`
		SELECT id, devnm, event_type, old_state, new_state, details, timestamp
		FROM array_events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*ArrayEvent
	for rows.Next() {
		var ev ArrayEvent
		if err := rows.Scan(&ev.ID, &ev.Devnm, &ev.EventType, &ev.OldState,
			&ev.NewState, &ev.Details, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// RecordProgress stores one sync progress sample
func (d *DB) RecordProgress(devnm, kind string, percent int) error {
	_, err := d.conn.Exec(`
		INSERT INTO sync_progress (devnm, kind, percent)
		VALUES (?, ?, ?)
	`, devnm, kind, percent)

	if err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	return nil
}

// PruneEvents deletes events and progress samples older than the cutoff
func (d *DB) PruneEvents(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)

	if _, err := d.conn.Exec("DELETE FROM array_events WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("failed to prune events: %w", err)
	}
	if _, err := d.conn.Exec("DELETE FROM sync_progress WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("failed to prune progress: %w", err)
	}

	return nil
}
