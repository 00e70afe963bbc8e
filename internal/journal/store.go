// Package journal appends the final outcome of every order submission to
// Postgres.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perpdesk/internal/model"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_submissions (
	id           UUID PRIMARY KEY,
	form_id      TEXT NOT NULL,
	account      TEXT NOT NULL,
	market       TEXT NOT NULL,
	state        TEXT NOT NULL,
	tx_hash      TEXT,
	vm_status    TEXT,
	error_kind   TEXT,
	error        TEXT,
	summary      JSONB,
	payload      JSONB,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS order_submissions_account_idx ON order_submissions (account, finished_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}

type row struct {
	ID         string
	FormID     string
	Account    string
	Market     string
	State      string
	TxHash     *string
	VMStatus   *string
	ErrorKind  *string
	Error      *string
	Summary    []byte
	Payload    []byte
	StartedAt  time.Time
	FinishedAt time.Time
}

func toRow(res model.OrderResult) (row, error) {
	r := row{
		ID:         res.SubmissionID,
		FormID:     res.FormID,
		Account:    res.Account,
		Market:     res.Market,
		State:      string(res.State),
		TxHash:     nullable(res.TxHash),
		VMStatus:   nullable(res.VMStatus),
		ErrorKind:  nullable(res.ErrorKind),
		Error:      nullable(res.Error),
		StartedAt:  res.StartedAt.UTC(),
		FinishedAt: res.FinishedAt.UTC(),
	}
	if !res.State.Terminal() {
		return r, fmt.Errorf("journal: submission %s is not finished (%s)", res.SubmissionID, res.State)
	}
	var err error
	if res.Summary != nil {
		if r.Summary, err = json.Marshal(res.Summary); err != nil {
			return r, fmt.Errorf("journal: encode summary: %w", err)
		}
	}
	if res.Payload != nil {
		if r.Payload, err = json.Marshal(res.Payload); err != nil {
			return r, fmt.Errorf("journal: encode payload: %w", err)
		}
	}
	return r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Record appends a finished submission. Recording the same id twice is a no-op.
func (s *Store) Record(ctx context.Context, res model.OrderResult) error {
	r, err := toRow(res)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO order_submissions
			(id, form_id, account, market, state, tx_hash, vm_status, error_kind, error, summary, payload, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.FormID, r.Account, r.Market, r.State, r.TxHash, r.VMStatus, r.ErrorKind, r.Error,
		r.Summary, r.Payload, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("journal: insert submission: %w", err)
	}
	return nil
}

// Entry is a journal row as returned to clients.
type Entry struct {
	ID         string          `json:"id"`
	FormID     string          `json:"form_id"`
	Market     string          `json:"market"`
	State      string          `json:"state"`
	TxHash     string          `json:"tx_hash,omitempty"`
	VMStatus   string          `json:"vm_status,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Error      string          `json:"error,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Recent returns the newest submissions of account, newest first.
func (s *Store) Recent(ctx context.Context, account string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, form_id, market, state, COALESCE(tx_hash, ''), COALESCE(vm_status, ''),
		       COALESCE(error_kind, ''), COALESCE(error, ''), summary, payload, started_at, finished_at
		FROM order_submissions
		WHERE account = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		var summary, payload []byte
		if err := rows.Scan(&e.ID, &e.FormID, &e.Market, &e.State, &e.TxHash, &e.VMStatus,
			&e.ErrorKind, &e.Error, &summary, &payload, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		e.Summary = summary
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one submission by id.
func (s *Store) Get(ctx context.Context, account, id string) (Entry, error) {
	var e Entry
	var summary, payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, form_id, market, state, COALESCE(tx_hash, ''), COALESCE(vm_status, ''),
		       COALESCE(error_kind, ''), COALESCE(error, ''), summary, payload, started_at, finished_at
		FROM order_submissions
		WHERE account = $1 AND id = $2
	`, account, id).Scan(&e.ID, &e.FormID, &e.Market, &e.State, &e.TxHash, &e.VMStatus,
		&e.ErrorKind, &e.Error, &summary, &payload, &e.StartedAt, &e.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	e.Summary = summary
	e.Payload = payload
	return e, nil
}

var ErrNotFound = errors.New("submission not found")
