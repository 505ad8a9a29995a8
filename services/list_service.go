package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/daylistio/daylist/models"
)

// DefaultListName returns the name given to lists created through the
// first-save flow: "My to-do list DD/MM/YYYY" for the server's date.
func DefaultListName(now time.Time) string {
	return "My to-do list " + now.Format("02/01/2006")
}

// ListService handles list CRUD and the claim operation
type ListService struct {
	db *sql.DB
}

// NewListService creates a new list service
func NewListService(db *sql.DB) *ListService {
	return &ListService{db: db}
}

// Create inserts a new list, owned by ownerID when non-nil
func (s *ListService) Create(ctx context.Context, name string, ownerID *int64) (*models.TodoList, error) {
	list := &models.TodoList{Name: name, UserID: ownerID}

	query := `INSERT INTO lists (name, user_id) VALUES ($1, $2) RETURNING id`
	err := s.db.QueryRowContext(ctx, query, list.Name, list.UserID).Scan(&list.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	return list, nil
}

// GetByID retrieves a list by ID
func (s *ListService) GetByID(ctx context.Context, listID int64) (*models.TodoList, error) {
	list := &models.TodoList{}
	query := `SELECT id, name, user_id FROM lists WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, listID).Scan(&list.ID, &list.Name, &list.UserID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("list %d: %w", listID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return list, nil
}

// ListByOwner retrieves all lists owned by the user, oldest first
func (s *ListService) ListByOwner(ctx context.Context, userID int64) ([]models.TodoList, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, user_id FROM lists WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	defer rows.Close()

	lists := []models.TodoList{}
	for rows.Next() {
		list := models.TodoList{}
		if err := rows.Scan(&list.ID, &list.Name, &list.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// Rename changes the list's display name
func (s *ListService) Rename(ctx context.Context, listID int64, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE lists SET name = $1 WHERE id = $2`, name, listID)
	if err != nil {
		return fmt.Errorf("failed to rename list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("list %d: %w", listID, models.ErrNotFound)
	}
	return nil
}

// Delete removes the list and all of its tasks in one transaction, so a
// crash can never leave a task row referencing a missing list.
func (s *ListService) Delete(ctx context.Context, listID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE list_id = $1`, listID); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, listID)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("list %d: %w", listID, models.ErrNotFound)
	}

	return tx.Commit()
}

// Claim attaches ownership of an anonymous list (and every task under it)
// to the user, in one transaction. Task owner mirrors the list owner; this
// is the only path that sets it after insert. A list that already belongs
// to another user is never reassigned: that returns ErrForbidden and the
// row is left unchanged. Claiming a list the user already owns is a no-op.
func (s *ListService) Claim(ctx context.Context, listID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin claim: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE lists SET user_id = $1 WHERE id = $2 AND (user_id IS NULL OR user_id = $1)`,
		userID, listID)
	if err != nil {
		return fmt.Errorf("failed to claim list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var owner sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM lists WHERE id = $1`, listID).Scan(&owner)
		if err == sql.ErrNoRows {
			return fmt.Errorf("list %d: %w", listID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check list owner: %w", err)
		}
		return fmt.Errorf("list %d belongs to another user: %w", listID, models.ErrForbidden)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET user_id = $1 WHERE list_id = $2`, userID, listID); err != nil {
		return fmt.Errorf("failed to claim tasks: %w", err)
	}

	return tx.Commit()
}
