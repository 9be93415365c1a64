package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"collabroom/config"
	"collabroom/internal/logx"
	"go.uber.org/zap"
)

// Archive is the append-only room history backing the export endpoints.
// Live room state is never rebuilt from it; a restart starts empty.
//
// All writes go through a single goroutine so the relay path only ever
// pays for a channel send.
type Archive struct {
	db   *sql.DB
	opCh chan config.ArchiveEvent
	done chan struct{}
}

func NewArchive(dbPath string) (*Archive, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", dbPath, err)
	}

	if _, err := sqlDB.Exec(`
        PRAGMA journal_mode = WAL;
        PRAGMA synchronous = NORMAL;
        PRAGMA busy_timeout = 5000; -- Wait 5s if db is locked
    `); err != nil {
		return nil, fmt.Errorf("archive: pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(`
        CREATE TABLE IF NOT EXISTS events (
            seq INTEGER NOT NULL,
            room_id TEXT NOT NULL,
            peer_id TEXT NOT NULL,
            entity_id TEXT NOT NULL,
            op TEXT NOT NULL,
            payload BLOB NOT NULL,
            created_at INTEGER NOT NULL
        );
    `); err != nil {
		return nil, fmt.Errorf("archive: create events: %w", err)
	}

	if _, err := sqlDB.Exec(`
        CREATE INDEX IF NOT EXISTS idx_events_room_seq
        ON events(room_id, seq);
    `); err != nil {
		return nil, fmt.Errorf("archive: create index: %w", err)
	}

	a := &Archive{
		db:   sqlDB,
		opCh: make(chan config.ArchiveEvent, 10000),
		done: make(chan struct{}),
	}

	go a.writerLoop()
	return a, nil
}

// Write enqueues one event. It never blocks; under backpressure the event
// is dropped and the export history simply has a hole.
func (a *Archive) Write(ev config.ArchiveEvent) {
	select {
	case a.opCh <- ev:
	default:
		logx.From(nil).Warn("archive_drop",
			zap.String("room", ev.RoomID),
			zap.String("op", ev.Op),
		)
	}
}

func (a *Archive) writerLoop() {
	defer close(a.done)

	stmt, err := a.db.Prepare(`
        INSERT INTO events
        (seq, room_id, peer_id, entity_id, op, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		logx.From(nil).Error("archive_prepare", zap.Error(err))
		return
	}
	defer stmt.Close()

	for ev := range a.opCh {
		if _, err := stmt.Exec(
			ev.Seq,
			ev.RoomID,
			ev.PeerID,
			ev.EntityID,
			ev.Op,
			[]byte(ev.Payload),
			ev.CreatedAt,
		); err != nil {
			logx.From(nil).Error("archive_insert", zap.Error(err))
		}
	}
}

// EventsForRoom returns a room's history in sequence order.
func (a *Archive) EventsForRoom(roomID string) ([]config.ArchiveEvent, error) {
	rows, err := a.db.Query(`
        SELECT seq, room_id, peer_id, entity_id, op, payload, created_at
        FROM events
        WHERE room_id = ?
        ORDER BY seq ASC
    `, roomID)
	if err != nil {
		return nil, fmt.Errorf("archive: query room %s: %w", roomID, err)
	}
	defer rows.Close()

	var events []config.ArchiveEvent
	for rows.Next() {
		var ev config.ArchiveEvent
		var payload []byte
		if err := rows.Scan(
			&ev.Seq,
			&ev.RoomID,
			&ev.PeerID,
			&ev.EntityID,
			&ev.Op,
			&payload,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		ev.Payload = payload
		events = append(events, ev)
	}

	return events, rows.Err()
}

// Close flushes queued writes and releases the database.
func (a *Archive) Close() error {
	close(a.opCh)
	<-a.done
	return a.db.Close()
}
