package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

// sqliteTimeLayout is fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLStore persists projects through database/sql with "?" placeholders.
// It backs the single-node SQLite deployment.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const sqlProjectColumns = `id, name, description, status, conversation_history, interview_complete,
pending_requirements, requirements, pending_code, generated_code, failure_reason, provider, created_at, updated_at`

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	out := p.Clone()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now()
	}
	out.UpdatedAt = out.CreatedAt

	cols, err := encodeColumns(out)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}

	const q = `INSERT INTO projects (` + sqlProjectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		out.ID, out.Name, out.Description, string(out.Status),
		nullableString(cols.History), out.InterviewComplete,
		nullableString(cols.PendingRequirements), nullableString(cols.Requirements),
		nullableString(cols.PendingCode), nullableString(cols.GeneratedCode),
		out.FailureReason, out.Provider,
		out.CreatedAt.UTC().Format(sqliteTimeLayout), out.UpdatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: duplicate project id %s", domain.ErrInvalidInput, out.ID)
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	const q = `SELECT ` + sqlProjectColumns + ` FROM projects WHERE id = ?`
	p, err := scanSQLProject(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func (s *SQLStore) Update(ctx context.Context, id string, expected domain.Status, patch domain.Patch) (*domain.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const sel = `SELECT ` + sqlProjectColumns + ` FROM projects WHERE id = ?`
	p, err := scanSQLProject(tx.QueryRowContext(ctx, sel, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Status != expected {
		return nil, fmt.Errorf("%w: expected %s, found %s", domain.ErrStaleState, expected, p.Status)
	}

	patch.Apply(p, now())
	cols, err := encodeColumns(p)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}

	const upd = `UPDATE projects
SET description = ?, status = ?, conversation_history = ?, interview_complete = ?,
    pending_requirements = ?, requirements = ?, pending_code = ?, generated_code = ?,
    failure_reason = ?, updated_at = ?
WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, upd,
		p.Description, string(p.Status), nullableString(cols.History), p.InterviewComplete,
		nullableString(cols.PendingRequirements), nullableString(cols.Requirements),
		nullableString(cols.PendingCode), nullableString(cols.GeneratedCode),
		p.FailureReason, p.UpdatedAt.UTC().Format(sqliteTimeLayout),
		id, string(expected),
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, domain.ErrStaleState
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *SQLStore) Claim(ctx context.Context, id string, expected domain.Status, staleBefore time.Time) (bool, error) {
	const q = `UPDATE projects SET updated_at = ? WHERE id = ? AND status = ? AND updated_at <= ?`
	res, err := s.db.ExecContext(ctx, q,
		now().Format(sqliteTimeLayout), id, string(expected), staleBefore.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return false, fmt.Errorf("claim project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*domain.Project, error) {
	const q = `SELECT ` + sqlProjectColumns + ` FROM projects ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanSQLProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLProject(row rowScanner) (*domain.Project, error) {
	var (
		p                    domain.Project
		status               string
		history, pendingReqs sql.NullString
		reqs, pendingCode    sql.NullString
		generatedCode        sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &status, &history, &p.InterviewComplete,
		&pendingReqs, &reqs, &pendingCode, &generatedCode,
		&p.FailureReason, &p.Provider, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)

	cols := jsonColumns{
		History:             nullBytes(history),
		PendingRequirements: nullBytes(pendingReqs),
		Requirements:        nullBytes(reqs),
		PendingCode:         nullBytes(pendingCode),
		GeneratedCode:       nullBytes(generatedCode),
	}
	if err := cols.decodeInto(&p); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	return &p, nil
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
