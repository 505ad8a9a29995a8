package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daylistio/daylist/models"
)

// TaskService handles task CRUD and the two display-state toggles
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new task service
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// Create inserts a task under the given list. The task's owner is derived
// from the parent list inside the same transaction, never from the caller,
// so a task row can never disagree with its list about ownership.
func (s *TaskService) Create(ctx context.Context, listID int64, body string) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback()

	var ownerID *int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM lists WHERE id = $1`, listID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("list %d: %w", listID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve list owner: %w", err)
	}

	task := &models.Task{
		ListID: listID,
		UserID: ownerID,
		Body:   body,
	}

	query := `INSERT INTO tasks (list_id, user_id, body, starred, completed)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err = tx.QueryRowContext(ctx, query, task.ListID, task.UserID, task.Body, false, false).Scan(&task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit insert: %w", err)
	}
	return task, nil
}

// GetByID retrieves a task by ID
func (s *TaskService) GetByID(ctx context.Context, taskID int64) (*models.Task, error) {
	task := &models.Task{}
	query := `SELECT id, list_id, user_id, body, starred, completed FROM tasks WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID, &task.ListID, &task.UserID, &task.Body, &task.Starred, &task.Completed,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListByList retrieves every task under a list, in creation order
func (s *TaskService) ListByList(ctx context.Context, listID int64) ([]models.Task, error) {
	query := `SELECT id, list_id, user_id, body, starred, completed FROM tasks WHERE list_id = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task := models.Task{}
		err := rows.Scan(&task.ID, &task.ListID, &task.UserID, &task.Body, &task.Starred, &task.Completed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ToggleComplete flips the completed flag and returns the updated task
func (s *TaskService) ToggleComplete(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.toggle(ctx, taskID, "completed")
}

// ToggleStarred flips the starred flag and returns the updated task
func (s *TaskService) ToggleStarred(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.toggle(ctx, taskID, "starred")
}

// toggle flips the column in a single statement, so two concurrent
// toggles on the same task cannot lose a flip.
func (s *TaskService) toggle(ctx context.Context, taskID int64, column string) (*models.Task, error) {
	task := &models.Task{}
	// column is one of two fixed identifiers, never user input
	query := fmt.Sprintf(`UPDATE tasks SET %s = NOT %s WHERE id = $1
	          RETURNING id, list_id, user_id, body, starred, completed`, column, column)
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID, &task.ListID, &task.UserID, &task.Body, &task.Starred, &task.Completed,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", taskID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle %s: %w", column, err)
	}
	return task, nil
}

// Delete removes a task and returns it so callers can redirect to the
// parent list.
func (s *TaskService) Delete(ctx context.Context, taskID int64) (*models.Task, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	return task, nil
}
