package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/league-wager-engine/internal/shared/db"
)

// Open conecta no driver configurado e aplica o schema
func Open(ctx context.Context, driver Dialect, dsn string, opts ...Option) (*SQLStore, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case Postgres:
		conn, err = db.ConnectPostgres(dsn)
	case SQLite:
		conn, err = db.ConnectSQLite(dsn)
	default:
		return nil, fmt.Errorf("ledger: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	s := NewSQLStore(conn, driver, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}
