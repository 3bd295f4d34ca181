package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// Registers the pgx stdlib driver under name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
)

const defaultListLimit = 50

// PostgresStore implements Store on a Postgres database via database/sql
// with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for the given DSN and verifies
// connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

const createTableSQL = `
create table if not exists submissions (
    id             text primary key,
    form_uid       text not null,
    instance_id    text not null default '',
    raw_data       jsonb not null default '{}',
    parsed_data    jsonb not null default '{}',
    status         text not null default 'submitted',
    sync_status    text not null default 'pending',
    sync_attempts  int  not null default 0,
    sync_error     text not null default '',
    provider_id    text not null default '',
    submitted_by   text not null default '',
    source         text not null default '',
    submitted_at   timestamptz not null,
    created_at     timestamptz not null default now(),
    updated_at     timestamptz not null default now()
);
create index if not exists submissions_form_uid_idx on submissions (form_uid);
create index if not exists submissions_sync_status_idx on submissions (sync_status);
`

// EnsureSchema creates the submissions table and indexes when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, sub *model.Submission) error {
	rawJS, err := json.Marshal(sub.RawData)
	if err != nil {
		return fmt.Errorf("marshal raw data: %w", err)
	}
	parsedJS, err := json.Marshal(sub.ParsedData)
	if err != nil {
		return fmt.Errorf("marshal parsed data: %w", err)
	}

	const q = `
insert into submissions (
  id, form_uid, instance_id, raw_data, parsed_data,
  status, sync_status, sync_attempts, sync_error, provider_id,
  submitted_by, source, submitted_at, created_at, updated_at
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, q,
		sub.ID, sub.FormUID, sub.InstanceID, rawJS, parsedJS,
		sub.Status, sub.SyncStatus, sub.SyncAttempts, sub.SyncError, sub.ProviderID,
		sub.SubmittedBy, sub.Source, sub.SubmittedAt, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

const selectColumns = `
id, form_uid, instance_id, raw_data, parsed_data,
status, sync_status, sync_attempts, sync_error, provider_id,
submitted_by, source, submitted_at, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Submission, error) {
	q := "select " + selectColumns + " from submissions where id = $1"
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*model.Submission, error) {
	q := "select " + selectColumns + " from submissions"
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.FormUID != "" {
		add("form_uid = $%d", filter.FormUID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.SyncStatus != "" {
		add("sync_status = $%d", filter.SyncStatus)
	}
	if len(conds) > 0 {
		q += " where " + strings.Join(conds, " and ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	q += fmt.Sprintf(" order by submitted_at desc limit $%d", len(args))
	args = append(args, filter.Offset)
	q += fmt.Sprintf(" offset $%d", len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	const q = `update submissions set status = $2, updated_at = now() where id = $1`
	return s.exec(ctx, q, id, status)
}

func (s *PostgresStore) MarkSynced(ctx context.Context, id, providerID string) error {
	const q = `
update submissions
set sync_status = $2, provider_id = $3, sync_error = '', updated_at = now()
where id = $1`
	return s.exec(ctx, q, id, model.SyncSynced, providerID)
}

func (s *PostgresStore) MarkSyncFailed(ctx context.Context, id, syncErr string) error {
	const q = `
update submissions
set sync_status = $2, sync_error = $3, sync_attempts = sync_attempts + 1, updated_at = now()
where id = $1`
	return s.exec(ctx, q, id, model.SyncFailed, syncErr)
}

func (s *PostgresStore) PendingSync(ctx context.Context, limit int) ([]*model.Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := "select " + selectColumns + ` from submissions
where sync_status = $1 order by submitted_at asc limit $2`
	rows, err := s.db.QueryContext(ctx, q, model.SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync: %w", err)
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending sync: %w", err)
	}
	return subs, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `select count(*) from submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) exec(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if aff, err := res.RowsAffected(); err == nil && aff == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var (
		sub      model.Submission
		rawJS    []byte
		parsedJS []byte
	)
	if err := row.Scan(
		&sub.ID, &sub.FormUID, &sub.InstanceID, &rawJS, &parsedJS,
		&sub.Status, &sub.SyncStatus, &sub.SyncAttempts, &sub.SyncError, &sub.ProviderID,
		&sub.SubmittedBy, &sub.Source, &sub.SubmittedAt, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(rawJS) > 0 {
		if err := json.Unmarshal(rawJS, &sub.RawData); err != nil {
			return nil, fmt.Errorf("unmarshal raw data: %w", err)
		}
	}
	if len(parsedJS) > 0 {
		if err := json.Unmarshal(parsedJS, &sub.ParsedData); err != nil {
			return nil, fmt.Errorf("unmarshal parsed data: %w", err)
		}
	}
	return &sub, nil
}
