package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Store is the read access the backup commands need.
type Store interface {
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]string, error)
	// EachRow calls fn for every row of table; NULLs have Valid=false.
	EachRow(ctx context.Context, table string, fn func([]sql.NullString) error) error
	Close() error
}

type mysqlStore struct {
	db *sql.DB
}

// OpenMySQL opens a pool for cfg. No connection is made until first use.
func OpenMySQL(cfg Config) (Store, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(time.Minute)
	db.SetMaxOpenConns(2)
	return &mysqlStore{db: db}, nil
}

func (s *mysqlStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return describe(err)
	}
	if one != 1 {
		return fmt.Errorf("SELECT 1: réponse inattendue %d", one)
	}
	return nil
}

func (s *mysqlStore) Version(ctx context.Context) (string, error) {
	var v string
	if err := s.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v); err != nil {
		return "", describe(err)
	}
	return v, nil
}

func (s *mysqlStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *mysqlStore) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table)+" LIMIT 0")
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()
	return rows.Columns()
}

func (s *mysqlStore) EachRow(ctx context.Context, table string, fn func([]sql.NullString) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return describe(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *mysqlStore) Close() error { return s.db.Close() }

// quoteIdent backtick-quotes a MySQL identifier.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ErrAccessDenied is wrapped when the server rejects the credentials.
var ErrAccessDenied = errors.New("identifiants refusés par le serveur MySQL")

// describe maps driver errors onto friendlier ones.
func describe(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1044, 1045:
			return fmt.Errorf("%w: %s", ErrAccessDenied, me.Message)
		case 1049:
			return fmt.Errorf("base inconnue: %s", me.Message)
		case 1146:
			return fmt.Errorf("table inconnue: %s", me.Message)
		}
	}
	return err
}
