package decoder

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDecoder decodes SQLite database files. Every row of every user table
// is one record; tables are read in creation order.
type SQLiteDecoder struct {
	// table restricts decoding to a single table when set
	table string
}

// NewSQLiteDecoder creates a SQLite decoder. An empty table reads all user tables.
func NewSQLiteDecoder(table string) *SQLiteDecoder {
	return &SQLiteDecoder{table: table}
}

// Open opens path read-only and lists the tables to iterate.
func (d *SQLiteDecoder) Open(path string) (RecordReader, error) {
	// mode=ro would otherwise surface a missing file as a generic "unable to open" error.
	if _, err := os.Stat(path); err != nil {
		return nil, openError(path, err)
	}

	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, openError(path, err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, openError(path, err)
	}
	db.SetMaxOpenConns(1)

	tables, err := d.tables(db)
	if err != nil {
		db.Close()
		return nil, openError(path, err)
	}

	return &sqliteRecordReader{path: path, db: db, tables: tables}, nil
}

// readOnlyDSN builds a file: URI for path. The path is escaped, so '#', '?'
// and '%' in a file name cannot end the path early or be decoded twice.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: "mode=ro&_query_only=true",
	}
	return u.String(), nil
}

func (d *SQLiteDecoder) tables(db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(context.Background(),
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if d.table == "" {
		return tables, nil
	}
	for _, name := range tables {
		if name == d.table {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("table %q not found", d.table)
}

type sqliteRecordReader struct {
	path   string
	db     *sql.DB
	tables []string
	rows   *sql.Rows
	raw    []sql.RawBytes
	dest   []interface{}
	rec    []string
	n      int64
}

func (s *sqliteRecordReader) Next() ([]string, error) {
	for {
		if s.rows == nil {
			if len(s.tables) == 0 {
				return nil, io.EOF
			}
			if err := s.openTable(s.tables[0]); err != nil {
				return nil, recordError(s.path, s.n+1, err)
			}
			s.tables = s.tables[1:]
		}

		if s.rows.Next() {
			if err := s.rows.Scan(s.dest...); err != nil {
				return nil, recordError(s.path, s.n+1, err)
			}
			for i, b := range s.raw {
				s.rec[i] = string(b)
			}
			s.n++
			return s.rec, nil
		}

		err := s.rows.Err()
		s.rows.Close()
		s.rows = nil
		if err != nil {
			return nil, recordError(s.path, s.n+1, err)
		}
	}
}

func (s *sqliteRecordReader) openTable(name string) error {
	rows, err := s.db.QueryContext(context.Background(), "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return err
	}

	s.rows = rows
	s.raw = make([]sql.RawBytes, len(cols))
	s.dest = make([]interface{}, len(cols))
	for i := range s.raw {
		s.dest[i] = &s.raw[i]
	}
	s.rec = make([]string, len(cols))
	return nil
}

func (s *sqliteRecordReader) Close() error {
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
