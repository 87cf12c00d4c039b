package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"musicfree/internal/library"
	"musicfree/internal/syncer"
)

// ErrRunExists signals a duplicate run id.
var ErrRunExists = errors.New("sync run already recorded")

// PGStore keeps documents as JSONB rows and the run history in sync_runs.
type PGStore struct {
	db       *sql.DB
	defaults syncer.Params
}

// NewPG sets up a PGStore. defaults is returned by LoadParams until params
// are saved.
func NewPG(db *sql.DB, defaults syncer.Params) *PGStore {
	return &PGStore{db: db, defaults: defaults}
}

func (s *PGStore) loadDoc(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body
		FROM documents
		WHERE name = $1
	`, name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return body, nil
}

func (s *PGStore) saveDoc(ctx context.Context, name string, body []byte) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET body = EXCLUDED.body, updated_at = NOW()
	`, name, body); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

// LoadLibrary returns the saved library or an empty one.
func (s *PGStore) LoadLibrary(ctx context.Context) (library.Config, error) {
	body, err := s.loadDoc(ctx, libraryDoc)
	if errors.Is(err, ErrNotFound) {
		return library.Config{Playlists: []library.LocalPlaylist{}}, nil
	}
	if err != nil {
		return library.Config{}, err
	}
	return decodeLibrary(libraryDoc, body)
}

// SaveLibrary replaces the saved library.
func (s *PGStore) SaveLibrary(ctx context.Context, cfg library.Config) error {
	body, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return s.saveDoc(ctx, libraryDoc, body)
}

// LoadParams returns the saved params or the defaults.
func (s *PGStore) LoadParams(ctx context.Context) (syncer.Params, error) {
	body, err := s.loadDoc(ctx, paramsDoc)
	if errors.Is(err, ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return syncer.Params{}, err
	}
	var params syncer.Params
	if err := json.Unmarshal(body, &params); err != nil {
		return syncer.Params{}, fmt.Errorf("decode %s: %w", paramsDoc, err)
	}
	return params, nil
}

// SaveParams replaces the saved params.
func (s *PGStore) SaveParams(ctx context.Context, params syncer.Params) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s: %w", paramsDoc, err)
	}
	return s.saveDoc(ctx, paramsDoc, body)
}

// LoadBaseline returns nil when no pass has succeeded yet.
func (s *PGStore) LoadBaseline(ctx context.Context) (*library.Config, error) {
	body, err := s.loadDoc(ctx, baselineDoc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := decodeLibrary(baselineDoc, body)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveBaseline replaces the baseline.
func (s *PGStore) SaveBaseline(ctx context.Context, cfg library.Config) error {
	body, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return s.saveDoc(ctx, baselineDoc, body)
}

// ClearBaseline deletes the baseline row. Clearing a missing baseline is
// not an error.
func (s *PGStore) ClearBaseline(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE name = $1
	`, baselineDoc); err != nil {
		return fmt.Errorf("delete %s: %w", baselineDoc, err)
	}
	return nil
}

// RecordRun appends a run to the history.
func (s *PGStore) RecordRun(ctx context.Context, run syncer.Run) error {
	ids := run.AudioIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, manual, started_at, finished_at, status, changed, uploaded,
			downloaded, download_failed, audio_ids, remote_sha, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, run.ID, run.Manual, run.StartedAt, run.FinishedAt, string(run.Status), run.Changed, run.Uploaded,
		run.Downloaded, run.DownloadFailed, pq.Array(ids), nullString(run.RemoteSHA), nullString(run.Error))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRunExists
		}
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (s *PGStore) ListRuns(ctx context.Context, limit int) ([]syncer.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manual, started_at, finished_at, status, changed, uploaded,
			downloaded, download_failed, audio_ids, remote_sha, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, runLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	runs := []syncer.Run{}
	for rows.Next() {
		var (
			run       syncer.Run
			status    string
			remoteSHA sql.NullString
			runErr    sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Manual, &run.StartedAt, &run.FinishedAt, &status, &run.Changed,
			&run.Uploaded, &run.Downloaded, &run.DownloadFailed, pq.Array(&run.AudioIDs), &remoteSHA, &runErr); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		run.Status = syncer.Status(status)
		run.RemoteSHA = remoteSHA.String
		run.Error = runErr.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}
	return runs, nil
}

// Ping checks the database connection.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
