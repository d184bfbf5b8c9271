package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Compile-time interface check
var _ Sink = (*SQLiteSink)(nil)

// SQLiteSink is a local append-only mirror of forwarded rows. It is
// write-only from the pipeline's point of view: the session history is
// never reloaded from it, the in-memory store stays the source of
// truth. It exists so the spreadsheet log has a local twin that
// survives Sheets outages.
type SQLiteSink struct {
	db     *sql.DB
	loc    *time.Location
	logger zerolog.Logger
}

// NewSQLiteSink opens (or creates) the mirror database at dbPath.
func NewSQLiteSink(dbPath string, loc *time.Location, logger zerolog.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}

	// Apply performance pragmas for SQLite
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: set pragma %q: %w", pragma, err)
		}
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if loc == nil {
		loc = time.UTC
	}

	s := &SQLiteSink{
		db:     db,
		loc:    loc,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("SQLite mirror initialized")
	return s, nil
}

// migrate creates the mirror schema if it doesn't exist
func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS telemetry_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at DATETIME NOT NULL,
		ph REAL,
		ec REAL,
		temperature_f REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_telemetry_log_recorded ON telemetry_log(recorded_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	s.logger.Debug().Msg("Mirror schema migrated")
	return nil
}

// Name identifies the sink in logs and stats.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Append inserts one row into the mirror log.
func (s *SQLiteSink) Append(ctx context.Context, row Row) error {
	query := `
		INSERT INTO telemetry_log (recorded_at, ph, ec, temperature_f)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		row.Timestamp.In(s.loc).Format(rowTimeFormat),
		nullable(row.PH),
		nullable(row.EC),
		nullable(row.TemperatureF),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert row: %w", err)
	}

	return nil
}

// Count returns the number of mirrored rows.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM telemetry_log").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count rows: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *SQLiteSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
