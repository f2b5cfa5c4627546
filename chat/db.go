package chat

import (
	"context"
	"fmt"

	"parlor/db"
)

// SQLStore persists messages through the sqlite pool. It implements
// MessageStore.
type SQLStore struct {
	Pool *db.DBPool
}

func NewSQLStore(pool *db.DBPool) *SQLStore {
	return &SQLStore{Pool: pool}
}

func (s *SQLStore) SaveMessage(ctx context.Context, msg Message) error {
	writeTx, err := s.Pool.GetWriteTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer writeTx.Rollback()

	query := `INSERT INTO chat_messages (room, sender, content, created_at)
              VALUES (?, ?, ?, ?)`

	_, err = writeTx.ExecContext(ctx, query, msg.Room, msg.Sender, msg.Content, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	if err = writeTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RecentMessages returns the last limit messages of a room in ascending
// time order. Used only to repopulate a cold history cache.
func (s *SQLStore) RecentMessages(ctx context.Context, room string, limit int) ([]Message, error) {
	readTx, err := s.Pool.GetReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer readTx.Rollback()

	query := `SELECT room, sender, content, created_at
              FROM chat_messages
              WHERE room = ?
              ORDER BY created_at DESC, id DESC
              LIMIT ?`

	rows, err := readTx.QueryContext(ctx, query, room, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		err := rows.Scan(&msg.Room, &msg.Sender, &msg.Content, &msg.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	if err = readTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}

	// Query returns newest-first; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
