package store

import "time"

// QueueOutbox journals a new outbound send in the 'queued' state.
func (db *DB) QueueOutbox(e *OutboxEntry) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, kind, target, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'queued', ?, ?)`,
		e.ClientMsgID, e.Kind, e.Target, e.Body, now, now)
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	e.Status = OutboxQueued
	e.CreatedAt, e.UpdatedAt = now, now
	return nil
}

// MarkOutboxSending updates an outbox entry to 'sending' status.
func (db *DB) MarkOutboxSending(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sending', updated_at = ? WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// MarkOutboxSent records the delivered message id together with the target
// the gateway accepted and the strategy that got it there.
func (db *DB) MarkOutboxSent(clientMsgID, serverMsgID, resolvedTarget, strategy string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'sent', server_msg_id = ?, resolved_target = ?, strategy = ?, updated_at = ?
		WHERE client_msg_id = ?`,
		serverMsgID, resolvedTarget, strategy, now, clientMsgID)
	return err
}

// MarkOutboxFailed updates an outbox entry to 'failed' with an error message.
func (db *DB) MarkOutboxFailed(clientMsgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'failed', error_message = ?, updated_at = ? WHERE client_msg_id = ?`, errMsg, now, clientMsgID)
	return err
}

// GetOutbox returns one entry by client id, or nil if unknown.
func (db *DB) GetOutbox(clientMsgID string) (*OutboxEntry, error) {
	entries, err := db.queryOutbox(`WHERE client_msg_id = ?`, clientMsgID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// PendingOutbox returns outbox entries that never reached a final status.
func (db *DB) PendingOutbox() ([]OutboxEntry, error) {
	return db.queryOutbox(`WHERE status IN ('queued', 'sending') ORDER BY created_at ASC`)
}

// RecentOutbox returns the newest entries first.
func (db *DB) RecentOutbox(limit int) ([]OutboxEntry, error) {
	return db.queryOutbox(`ORDER BY id DESC LIMIT ?`, limit)
}

func (db *DB) queryOutbox(where string, args ...any) ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, kind, target, resolved_target, body, status, strategy,
			error_message, server_msg_id, created_at, updated_at
		FROM outbox `+where, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.Kind, &e.Target, &e.ResolvedTarget, &e.Body, &e.Status,
			&e.Strategy, &e.ErrorMessage, &e.ServerMsgID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
