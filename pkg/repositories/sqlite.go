package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cbodonnell/monuments/pkg/game/types"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	scripts, err := readMigrations("sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	for i, migration := range scripts {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) Append(ctx context.Context, monument types.Monument) error {
	q := `
	INSERT INTO monument_log (monument_id, description, asset, x, y, under_construction, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q,
		monument.ID,
		monument.Description,
		monument.Asset,
		monument.Position.X,
		monument.Position.Y,
		monument.UnderConstruction,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert monument: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) ([]types.Monument, error) {
	q := `
	SELECT monument_id, description, asset, x, y, under_construction
	FROM monument_log ORDER BY seq;
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query monuments: %v", err)
	}
	defer rows.Close()

	var monuments []types.Monument
	for rows.Next() {
		var m types.Monument
		if err := rows.Scan(&m.ID, &m.Description, &m.Asset, &m.Position.X, &m.Position.Y, &m.UnderConstruction); err != nil {
			return nil, fmt.Errorf("failed to scan monument: %v", err)
		}
		monuments = append(monuments, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monuments: %v", err)
	}

	return monuments, nil
}
