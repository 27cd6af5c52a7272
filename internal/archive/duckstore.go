// Package archive keeps a history of bin fill levels in DuckDB.
package archive

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/binmap/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// DefaultHistoryLimit caps History when no limit is given.
const DefaultHistoryLimit = 100

// Record is one archived bin reading.
type Record struct {
	BinID      int                `json:"binId"`
	Name       string             `json:"name"`
	FillLevels models.FillLevels  `json:"fillLevels"`
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	Label      models.StatusLabel `json:"label"`
	FetchedAt  time.Time          `json:"fetchedAt"`
}

// Store appends every accepted bin snapshot to a DuckDB table.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	mu     sync.Mutex // one appender at a time
	now    func() time.Time
}

// Open creates or opens the archive at path. An empty path keeps the
// archive in memory.
func Open(path string, threads int, memoryLimit string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if threads <= 0 {
		threads = 2
	}
	if memoryLimit == "" {
		memoryLimit = "256MB"
	}

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", memoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bin_readings (
			bin_id     BIGINT NOT NULL,
			name       VARCHAR,
			recycle    BIGINT NOT NULL,
			general    BIGINT NOT NULL,
			wet        BIGINT NOT NULL,
			danger     BIGINT NOT NULL,
			latitude   DOUBLE NOT NULL,
			longitude  DOUBLE NOT NULL,
			label      VARCHAR NOT NULL,
			fetched_at BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	logger.Info("archive opened", "path", path)
	return &Store{db: db, path: path, logger: logger, now: time.Now}, nil
}

// Append writes one snapshot using the DuckDB appender.
func (s *Store) Append(ctx context.Context, bins []models.BinStat, at time.Time) error {
	if len(bins) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "bin_readings")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		ts := at.UnixMilli()
		for i, b := range bins {
			err := appender.AppendRow(
				int64(b.ID),
				b.Name,
				int64(b.Recycle),
				int64(b.General),
				int64(b.Wet),
				int64(b.Danger),
				b.Latitude,
				b.Longitude,
				string(models.LabelFor(b)),
				ts,
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// Observe archives a snapshot, logging rather than returning failures.
// It fits mapview.Config.BinObservers.
func (s *Store) Observe(bins []models.BinStat) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Append(ctx, bins, s.now()); err != nil {
		s.logger.Error("archive append failed", "err", err, "count", len(bins))
	}
}

// History returns the newest readings for one bin, newest first.
func (s *Store) History(ctx context.Context, binID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bin_id, name, recycle, general, wet, danger, latitude, longitude, label, fetched_at
		FROM bin_readings
		WHERE bin_id = ?
		ORDER BY fetched_at DESC
		LIMIT ?`, binID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			r     Record
			name  sql.NullString
			label string
			ts    int64
		)
		if err := rows.Scan(&r.BinID, &name, &r.FillLevels.Recycle, &r.FillLevels.General,
			&r.FillLevels.Wet, &r.FillLevels.Danger, &r.Latitude, &r.Longitude, &label, &ts); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		r.Name = name.String
		r.Label = models.StatusLabel(label)
		r.FetchedAt = time.UnixMilli(ts).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of archived readings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bin_readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
