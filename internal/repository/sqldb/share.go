package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
)

const shareColumns = `id, memory_id, shared_with_email, shared_with_user_id, shared_by_user_id, permission, created_at`

func (db *DB) CreateShare(ctx context.Context, share *model.MemoryShare) error {
	share.ID = newID()
	share.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, db.q(
		`INSERT INTO memory_shares (`+shareColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		share.ID, share.MemoryID, share.SharedWithEmail, nullString(share.SharedWithUserID),
		share.SharedByUserID, share.Permission, share.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: inserting share for memory %s: %w", db.name(), share.MemoryID, err)
	}
	return nil
}

func (db *DB) GetShare(ctx context.Context, id string) (*model.MemoryShare, error) {
	row := db.conn.QueryRowContext(ctx, db.q(`SELECT `+shareColumns+` FROM memory_shares WHERE id = ?`), id)
	s, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("share", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: getting share %s: %w", db.name(), id, err)
	}
	return s, nil
}

func (db *DB) ListSharesByMemory(ctx context.Context, memoryID string) ([]model.MemoryShare, error) {
	return db.listShares(ctx,
		`SELECT `+shareColumns+` FROM memory_shares WHERE memory_id = ? ORDER BY created_at, id`, memoryID)
}

func (db *DB) ListSharesByEmail(ctx context.Context, email string) ([]model.MemoryShare, error) {
	return db.listShares(ctx,
		`SELECT `+shareColumns+` FROM memory_shares WHERE lower(shared_with_email) = lower(?) ORDER BY created_at, id`, email)
}

// ListMemoriesSharedWith uses IN rather than a JOIN so a memory granted twice
// to the same address comes back once.
func (db *DB) ListMemoriesSharedWith(ctx context.Context, email string) ([]model.Memory, error) {
	rows, err := db.conn.QueryContext(ctx, db.q(
		`SELECT `+memoryColumns+` FROM memories m
		 WHERE m.id IN (SELECT memory_id FROM memory_shares WHERE lower(shared_with_email) = lower(?))
		 ORDER BY m.date DESC, m.created_at DESC`), email)
	if err != nil {
		return nil, fmt.Errorf("%s: listing memories shared with %s: %w", db.name(), email, err)
	}
	return collectMemories(rows)
}

func (db *DB) DeleteShare(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, db.q(`DELETE FROM memory_shares WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("%s: deleting share %s: %w", db.name(), id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: checking rows affected: %w", db.name(), err)
	}
	return n > 0, nil
}

func (db *DB) listShares(ctx context.Context, query string, args ...any) ([]model.MemoryShare, error) {
	rows, err := db.conn.QueryContext(ctx, db.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: listing shares: %w", db.name(), err)
	}
	defer rows.Close()

	shares := []model.MemoryShare{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scanning share row: %w", db.name(), err)
		}
		shares = append(shares, *s)
	}
	return shares, rows.Err()
}

func scanShare(row scanner) (*model.MemoryShare, error) {
	var (
		s      model.MemoryShare
		userID sql.NullString
	)
	if err := row.Scan(&s.ID, &s.MemoryID, &s.SharedWithEmail, &userID, &s.SharedByUserID, &s.Permission, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.SharedWithUserID = userID.String
	return &s, nil
}
