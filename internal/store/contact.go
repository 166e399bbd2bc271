package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const upsertContactSQL = `
	INSERT INTO contacts (jid, alt_jid, name, push_name, verified_name, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(jid) DO UPDATE SET
		alt_jid = CASE WHEN excluded.alt_jid != '' THEN excluded.alt_jid ELSE contacts.alt_jid END,
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
		push_name = CASE WHEN excluded.push_name != '' THEN excluded.push_name ELSE contacts.push_name END,
		verified_name = CASE WHEN excluded.verified_name != '' THEN excluded.verified_name ELSE contacts.verified_name END,
		updated_at = excluded.updated_at`

// UpsertContact inserts or updates a contact. Empty fields never overwrite
// known values.
func (db *DB) UpsertContact(c *Contact) error {
	_, err := db.Exec(upsertContactSQL, c.JID, c.AltJID, c.Name, c.PushName, c.VerifiedName, time.Now().UnixMilli())
	return err
}

// BulkUpsertContacts inserts or updates multiple contacts in a single transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range contacts {
		if _, err := tx.Exec(upsertContactSQL, c.JID, c.AltJID, c.Name, c.PushName, c.VerifiedName, now); err != nil {
			return fmt.Errorf("upsert contact %q: %w", c.JID, err)
		}
	}
	return tx.Commit()
}

// GetContact returns a contact by JID or alternate JID, or nil if unknown.
func (db *DB) GetContact(jid string) (*Contact, error) {
	var c Contact
	err := db.QueryRow(`
		SELECT jid, alt_jid, name, push_name, verified_name, updated_at
		FROM contacts WHERE jid = ? OR alt_jid = ?
		ORDER BY jid = ? DESC LIMIT 1`, jid, jid, jid).
		Scan(&c.JID, &c.AltJID, &c.Name, &c.PushName, &c.VerifiedName, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContacts returns all contacts ordered by JID.
func (db *DB) ListContacts() ([]Contact, error) {
	rows, err := db.Query(`
		SELECT jid, alt_jid, name, push_name, verified_name, updated_at
		FROM contacts ORDER BY jid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.JID, &c.AltJID, &c.Name, &c.PushName, &c.VerifiedName, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContactCount returns the total number of contacts.
func (db *DB) ContactCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts`).Scan(&count)
	return count, err
}
