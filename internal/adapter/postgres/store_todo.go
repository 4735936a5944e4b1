package postgres

import (
	"context"
	"fmt"

	"github.com/stackpad/stackpad/internal/domain"
	"github.com/stackpad/stackpad/internal/domain/todo"
)

// --- Todos ---

// Visibility is part of the query for every read: a todo is visible to the
// members of its organization, or to its creator when it has none. Rows the
// viewer may not see are indistinguishable from rows that do not exist.
const todoVisible = `(
	(t.organization_id IS NOT NULL AND EXISTS (
		SELECT 1 FROM memberships m
		WHERE m.organization_id = t.organization_id AND m.account_id = $2
	))
	OR (t.organization_id IS NULL AND t.creator_id = $2)
)`

func (s *Store) CreateTodo(ctx context.Context, t *todo.Todo) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO todos (organization_id, creator_id, title, body, done)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		t.OrganizationID, t.CreatorID, t.Title, t.Body, t.Done,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create todo: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (s *Store) GetTodoVisible(ctx context.Context, id, viewerID string) (*todo.Todo, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT t.id, t.organization_id, t.creator_id, t.title, t.body, t.done,
		        t.created_at, t.updated_at
		 FROM todos t
		 WHERE t.id = $1 AND `+todoVisible, id, viewerID)

	t, err := scanTodo(row)
	if err != nil {
		return nil, notFoundWrap(err, "get todo %s", id)
	}
	return t, nil
}

// ListTodosVisible returns everything the viewer may read: personal todos
// they created plus all todos of organizations they belong to.
func (s *Store) ListTodosVisible(ctx context.Context, viewerID string) ([]todo.Todo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.organization_id, t.creator_id, t.title, t.body, t.done,
		        t.created_at, t.updated_at
		 FROM todos t
		 WHERE (t.organization_id IS NOT NULL AND EXISTS (
		         SELECT 1 FROM memberships m
		         WHERE m.organization_id = t.organization_id AND m.account_id = $1
		       ))
		    OR (t.organization_id IS NULL AND t.creator_id = $1)
		 ORDER BY t.created_at DESC`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()
	return collectTodos(rows)
}

func (s *Store) ListOrganizationTodos(ctx context.Context, orgID, viewerID string) ([]todo.Todo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.organization_id, t.creator_id, t.title, t.body, t.done,
		        t.created_at, t.updated_at
		 FROM todos t
		 WHERE t.organization_id = $1 AND EXISTS (
		   SELECT 1 FROM memberships m
		   WHERE m.organization_id = t.organization_id AND m.account_id = $2
		 )
		 ORDER BY t.created_at DESC`, orgID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list organization todos org=%s: %w", orgID, err)
	}
	defer rows.Close()
	return collectTodos(rows)
}

func (s *Store) UpdateTodo(ctx context.Context, t *todo.Todo) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE todos SET organization_id = $2, title = $3, body = $4, done = $5,
		        updated_at = now()
		 WHERE id = $1`,
		t.ID, t.OrganizationID, t.Title, t.Body, t.Done)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("update todo %s: %w", t.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update todo %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update todo %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete todo %s", id)
}

func scanTodo(row scannable) (*todo.Todo, error) {
	var t todo.Todo
	err := row.Scan(&t.ID, &t.OrganizationID, &t.CreatorID, &t.Title, &t.Body, &t.Done,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTodos(rows interface {
	scannable
	Next() bool
	Err() error
}) ([]todo.Todo, error) {
	var todos []todo.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	return todos, rows.Err()
}
