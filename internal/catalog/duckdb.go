package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"github.com/leasecheck/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// DuckDB is a Catalog persisted in a DuckDB database file. An empty path
// opens an in-memory database.
type DuckDB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenDuckDB opens or creates the catalog database at path.
func OpenDuckDB(path string, logger *slog.Logger) (*DuckDB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS intakes (
			file_id       VARCHAR PRIMARY KEY,
			name          VARCHAR NOT NULL,
			size          BIGINT NOT NULL,
			detected_mime VARCHAR,
			document_type VARCHAR,
			status        VARCHAR NOT NULL,
			error         VARCHAR,
			completed_at  TIMESTAMP NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create intakes table: %w", err)
	}

	logger.Info("catalog opened", "path", path)
	return &DuckDB{db: db, path: path, logger: logger}, nil
}

func (d *DuckDB) Record(ctx context.Context, rec models.IntakeRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO intakes
			(file_id, name, size, detected_mime, document_type, status, error, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileID, rec.Name, rec.Size, rec.DetectedMIME, rec.DocumentType,
		rec.Status, rec.Error, rec.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording intake %s: %w", rec.FileID, err)
	}
	return nil
}

func (d *DuckDB) Recent(ctx context.Context, limit int) ([]models.IntakeRecord, error) {
	query := `
		SELECT file_id, name, size, detected_mime, document_type, status, error, completed_at
		FROM intakes
		ORDER BY completed_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying intakes: %w", err)
	}
	defer rows.Close()

	var list []models.IntakeRecord
	for rows.Next() {
		var rec models.IntakeRecord
		var mime, docType, errMsg sql.NullString
		if err := rows.Scan(&rec.FileID, &rec.Name, &rec.Size, &mime, &docType,
			&rec.Status, &errMsg, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning intake: %w", err)
		}
		rec.DetectedMIME = mime.String
		rec.DocumentType = docType.String
		rec.Error = errMsg.String
		list = append(list, rec)
	}
	return list, rows.Err()
}

// Close closes the database.
func (d *DuckDB) Close() error {
	return d.db.Close()
}

var (
	_ Catalog = (*Memory)(nil)
	_ Catalog = (*DuckDB)(nil)
)
