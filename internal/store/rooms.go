package store

import (
	"time"

	"github.com/termchat/termchat/internal/wire"
)

// UpsertRooms refreshes the room-directory cache from a REST listing.
// The cache only exists so the sidebar renders before the first
// round-trip; the server listing always wins.
func (db *DB) UpsertRooms(rooms []wire.Room) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, r := range rooms {
		if _, err := tx.Exec(`
			INSERT INTO rooms (id, name, description, is_private, created_by, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				is_private = excluded.is_private,
				updated_at = excluded.updated_at`,
			r.ID, r.Name, r.Description, r.IsPrivate, r.CreatedBy, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Rooms returns the cached room directory ordered by name.
func (db *DB) Rooms() ([]wire.Room, error) {
	rows, err := db.Query(`SELECT id, name, description, is_private, created_by FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []wire.Room
	for rows.Next() {
		var r wire.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.IsPrivate, &r.CreatedBy); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
