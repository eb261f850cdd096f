//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"flexevo/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.path)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "ping %s", s.path)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeRun(run)
	if err != nil {
		return errors.Wrapf(err, "encode run %s", run.ID)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.ID, run.StartedAt.UnixNano(), run.SchemaVersion, run.CodecVersion, payload)
	return errors.Wrapf(err, "save run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, errors.Wrapf(err, "get run %s", id)
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, errors.Wrapf(err, "decode run %s", id)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs`)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "decode run %s", id)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	sortRuns(runs)
	return runs, nil
}

func (s *SQLiteStore) SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodePopulation(snapshot)
	if err != nil {
		return errors.Wrapf(err, "encode population %s", snapshot.ID)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO populations (id, run_id, generation, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			generation = excluded.generation,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, snapshot.ID, snapshot.RunID, snapshot.Generation, snapshot.SchemaVersion, snapshot.CodecVersion, payload)
	return errors.Wrapf(err, "save population %s", snapshot.ID)
}

func (s *SQLiteStore) GetPopulation(ctx context.Context, id string) (model.PopulationSnapshot, bool, error) {
	return s.queryPopulation(ctx, `SELECT payload FROM populations WHERE id = ?`, id)
}

func (s *SQLiteStore) LatestPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	return s.queryPopulation(ctx, `
		SELECT payload FROM populations
		WHERE run_id = ?
		ORDER BY generation DESC
		LIMIT 1
	`, runID)
}

func (s *SQLiteStore) queryPopulation(ctx context.Context, query, arg string) (model.PopulationSnapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.PopulationSnapshot{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, query, arg).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PopulationSnapshot{}, false, nil
		}
		return model.PopulationSnapshot{}, false, errors.Wrapf(err, "get population %s", arg)
	}
	snapshot, err := DecodePopulation(payload)
	if err != nil {
		return model.PopulationSnapshot{}, false, errors.Wrapf(err, "decode population %s", arg)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) SaveGenerations(ctx context.Context, runID string, generations []model.GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeGenerations(generations)
	if err != nil {
		return errors.Wrapf(err, "encode generations of %s", runID)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return errors.Wrapf(err, "save generations of %s", runID)
}

func (s *SQLiteStore) GetGenerations(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM generations WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "get generations of %s", runID)
	}
	generations, err := DecodeGenerations(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode generations of %s", runID)
	}
	return generations, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS populations (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS populations_run_generation ON populations (run_id, generation);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
