package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type runRow struct {
	bun.BaseModel `bun:"table:pipeline_runs,alias:r"`

	ID         string    `bun:"id,pk"`
	Pipeline   string    `bun:"pipeline,notnull"`
	File       string    `bun:"file"`
	Option     string    `bun:"option,notnull"`
	Mode       string    `bun:"mode"`
	Status     string    `bun:"status,notnull"`
	Stage      string    `bun:"stage"`
	Failure    string    `bun:"failure"`
	Cause      string    `bun:"cause"`
	OutputFile string    `bun:"output_file"`
	StartedAt  time.Time `bun:"started_at,notnull"`
	FinishedAt time.Time `bun:"finished_at,notnull"`
}

// PGStore keeps records in Postgres.
type PGStore struct {
	db *bun.DB
}

// NewPGStore connects to dsn and creates the runs table if needed.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)

	s := &PGStore{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run history: %w", err)
	}
	return s, nil
}

func (s *PGStore) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*runRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create pipeline_runs table: %w", err)
	}
	_, err := s.db.NewCreateIndex().
		Model((*runRow)(nil)).
		Index("idx_pipeline_runs_started_at").
		Column("started_at").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create started_at index: %w", err)
	}
	return nil
}

func (s *PGStore) Save(ctx context.Context, r Record) error {
	row := runRow{
		ID: r.ID, Pipeline: r.Pipeline, File: r.File, Option: r.Option, Mode: r.Mode,
		Status: r.Status, Stage: r.Stage, Failure: r.Failure, Cause: r.Cause,
		OutputFile: r.OutputFile, StartedAt: r.StartedAt, FinishedAt: r.FinishedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, limit int) ([]Record, error) {
	var rows []runRow
	q := s.db.NewSelect().Model(&rows).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record{
			ID: row.ID, Pipeline: row.Pipeline, File: row.File, Option: row.Option, Mode: row.Mode,
			Status: row.Status, Stage: row.Stage, Failure: row.Failure, Cause: row.Cause,
			OutputFile: row.OutputFile, StartedAt: row.StartedAt, FinishedAt: row.FinishedAt,
		}
	}
	return out, nil
}

func (s *PGStore) Close() error { return s.db.Close() }
