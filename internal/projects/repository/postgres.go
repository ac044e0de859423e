package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgProjectColumns = `id, name, description, status, conversation_history, interview_complete,
pending_requirements, requirements, pending_code, generated_code, failure_reason, provider, created_at, updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	out := p.Clone()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now()
	}
	out.UpdatedAt = out.CreatedAt

	cols, err := encodeColumns(out)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}

	const q = `
insert into projects (` + pgProjectColumns + `)
values ($1, $2, $3, $4, $5::jsonb, $6, $7::jsonb, $8::jsonb, $9::jsonb, $10::jsonb, $11, $12, $13, $14);
`
	_, err = s.db.Exec(ctx, q,
		out.ID, out.Name, out.Description, string(out.Status),
		nullableString(cols.History), out.InterviewComplete,
		nullableString(cols.PendingRequirements), nullableString(cols.Requirements),
		nullableString(cols.PendingCode), nullableString(cols.GeneratedCode),
		out.FailureReason, out.Provider, out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: duplicate project id %s", domain.ErrInvalidInput, out.ID)
		}
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	const q = `select ` + pgProjectColumns + ` from projects where id = $1;`
	p, err := scanPgProject(s.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) Update(ctx context.Context, id string, expected domain.Status, patch domain.Patch) (*domain.Project, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const sel = `select ` + pgProjectColumns + ` from projects where id = $1 for update;`
	p, err := scanPgProject(tx.QueryRow(ctx, sel, id))
	if errors.Is(err, pgx.ErrNoRows) {
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

	const upd = `
update projects
set description = $3, status = $4, conversation_history = $5::jsonb, interview_complete = $6,
    pending_requirements = $7::jsonb, requirements = $8::jsonb, pending_code = $9::jsonb,
    generated_code = $10::jsonb, failure_reason = $11, updated_at = $12
where id = $1 and status = $2;
`
	ct, err := tx.Exec(ctx, upd,
		id, string(expected), p.Description, string(p.Status),
		nullableString(cols.History), p.InterviewComplete,
		nullableString(cols.PendingRequirements), nullableString(cols.Requirements),
		nullableString(cols.PendingCode), nullableString(cols.GeneratedCode),
		p.FailureReason, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return nil, domain.ErrStaleState
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Claim(ctx context.Context, id string, expected domain.Status, staleBefore time.Time) (bool, error) {
	const q = `update projects set updated_at = $4 where id = $1 and status = $2 and updated_at <= $3;`
	ct, err := s.db.Exec(ctx, q, id, string(expected), staleBefore, now())
	if err != nil {
		return false, fmt.Errorf("claim project: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.Project, error) {
	const q = `select ` + pgProjectColumns + ` from projects order by created_at desc;`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanPgProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPgProject(row pgx.Row) (*domain.Project, error) {
	var (
		p      domain.Project
		status string
		cols   jsonColumns
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &status, &cols.History, &p.InterviewComplete,
		&cols.PendingRequirements, &cols.Requirements, &cols.PendingCode, &cols.GeneratedCode,
		&p.FailureReason, &p.Provider, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)
	if err := cols.decodeInto(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
