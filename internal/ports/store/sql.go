package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fillblank/internal/ports"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names registered by the imported database/sql drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS lobby_snapshots (
	code TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQL stores snapshots in a single table on PostgreSQL or SQLite.
type SQL struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// OpenSQL connects with one of the supported drivers and creates the table.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported snapshot driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases alive and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	s := &SQL{db: db, driver: driver, now: time.Now}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) Save(ctx context.Context, code string, snapshot []byte) error {
	query := s.rebind(`INSERT INTO lobby_snapshots (code, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, code, string(snapshot), s.now().UTC()); err != nil {
		return fmt.Errorf("error saving snapshot %s: %w", code, err)
	}
	return nil
}

func (s *SQL) Load(ctx context.Context, code string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT data FROM lobby_snapshots WHERE code = ?`), code).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error loading snapshot %s: %w", code, err)
	}
	return []byte(data), nil
}

func (s *SQL) Delete(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM lobby_snapshots WHERE code = ?`), code); err != nil {
		return fmt.Errorf("error deleting snapshot %s: %w", code, err)
	}
	return nil
}

func (s *SQL) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM lobby_snapshots ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("error listing snapshots: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("error scanning snapshot code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return codes, nil
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *SQL) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ ports.SnapshotStore = (*SQL)(nil)
