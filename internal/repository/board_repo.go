// Package repository provides data access for the board directory.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/collab-board/backend/internal/model"
)

// BoardRepository records board lifecycle metadata. It implements
// board.Directory. Drawing, chat, and cursor state never reach it.
type BoardRepository struct {
	db *sql.DB
}

// NewBoardRepository creates a new BoardRepository.
func NewBoardRepository(db *sql.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// RecordCreated inserts a directory row for a freshly created board.
func (r *BoardRepository) RecordCreated(ctx context.Context, info model.BoardInfo) error {
	query := `INSERT INTO boards (id, name, created_at) VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, info.ID, info.Name, info.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record board: %w", err)
	}
	return nil
}

// RecordClosed stamps the reclamation time on a board's directory row.
func (r *BoardRepository) RecordClosed(ctx context.Context, id string, closedAt time.Time) error {
	query := `UPDATE boards SET closed_at = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, closedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record board close: %w", err)
	}
	return nil
}

// GetByID retrieves a board's directory row.
func (r *BoardRepository) GetByID(ctx context.Context, id string) (*model.BoardInfo, error) {
	query := `SELECT id, name, created_at, closed_at FROM boards WHERE id = ?`

	info := &model.BoardInfo{}
	var closedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(&info.ID, &info.Name, &info.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	if closedAt.Valid {
		t := closedAt.Time
		info.ClosedAt = &t
	}
	return info, nil
}

// ListRecent returns the most recently created boards, newest first.
func (r *BoardRepository) ListRecent(ctx context.Context, limit int) ([]*model.BoardInfo, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, name, created_at, closed_at FROM boards ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var infos []*model.BoardInfo
	for rows.Next() {
		info := &model.BoardInfo{}
		var closedAt sql.NullTime
		if err := rows.Scan(&info.ID, &info.Name, &info.CreatedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		if closedAt.Valid {
			t := closedAt.Time
			info.ClosedAt = &t
		}
		infos = append(infos, info)
	}

	return infos, rows.Err()
}
