package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/jackc/pgx/v5"
)

// PostgresRepository keeps the monument log in a postgres table.
// A pgx.Conn is not safe for concurrent use so every call holds lock.
type PostgresRepository struct {
	lock sync.Mutex
	conn *pgx.Conn
}

// NewPostgresRepository creates a new PostgresRepository and applies migrations.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	conn, err := connectDb(ctx, connStr)
	if err != nil {
		return nil, err
	}

	scripts, err := readMigrations("postgres")
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	for i, migration := range scripts {
		if _, err := conn.Exec(ctx, migration); err != nil {
			conn.Close(ctx)
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func connectDb(ctx context.Context, connStr string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("unable to query database: %v", err)
	}

	log.Info("Connected to %s as %s", database, username)

	return conn, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) Append(ctx context.Context, monument types.Monument) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	q := `
	INSERT INTO monument_log (monument_id, description, asset, x, y, under_construction)
	VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.conn.Exec(ctx, q,
		int64(monument.ID),
		monument.Description,
		monument.Asset,
		monument.Position.X,
		monument.Position.Y,
		monument.UnderConstruction,
	)
	if err != nil {
		return fmt.Errorf("failed to insert monument: %v", err)
	}

	return nil
}

func (r *PostgresRepository) Load(ctx context.Context) ([]types.Monument, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	rows, err := r.conn.Query(ctx, `
	SELECT monument_id, description, asset, x, y, under_construction
	FROM monument_log ORDER BY seq;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monuments: %v", err)
	}
	defer rows.Close()

	var monuments []types.Monument
	for rows.Next() {
		var id int64
		var m types.Monument
		if err := rows.Scan(&id, &m.Description, &m.Asset, &m.Position.X, &m.Position.Y, &m.UnderConstruction); err != nil {
			return nil, fmt.Errorf("failed to scan monument: %v", err)
		}
		m.ID = types.MonumentID(id)
		monuments = append(monuments, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monuments: %v", err)
	}

	return monuments, nil
}
