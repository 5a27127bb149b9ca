// Package store is the Postgres backing store: connection management with a
// bounded fixed-delay retry, result loading into tables, and schema
// introspection for the aggregation rule table.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/johnharveymath/oxcovid19db/internal/table"
)

// Config locates the database and sets the retry budget.
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration

	// Retries is the number of extra attempts after the first one.
	Retries      int
	ConnectDelay time.Duration
	QueryDelay   time.Duration
}

// DefaultConfig points at the public OxCOVID19 database.
func DefaultConfig() Config {
	return Config{
		Host:           "covid19db.org",
		Port:           5432,
		Database:       "covid19",
		User:           "covid19",
		Password:       "covid19",
		SSLMode:        "prefer",
		ConnectTimeout: 5 * time.Second,
		Retries:        10,
		ConnectDelay:   5 * time.Second,
		QueryDelay:     time.Second,
	}
}

// DSN renders c as a postgres URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Dialer opens a database handle and verifies it is reachable.
type Dialer func(ctx context.Context, dsn string) (*sqlx.DB, error)

func dialPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return sqlx.ConnectContext(ctx, "postgres", dsn)
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used between retries.
func WithClock(c Clock) Option { return func(s *Store) { s.clock = c } }

// WithLogger sets the logger for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDialer replaces the postgres dialer.
func WithDialer(d Dialer) Option { return func(s *Store) { s.dial = d } }

// Store runs queries against Postgres. The connection is opened lazily and
// reopened after a transient query failure. Safe for concurrent use.
type Store struct {
	cfg    Config
	dial   Dialer
	clock  Clock
	logger *slog.Logger

	mu sync.Mutex
	db *sqlx.DB
}

// New returns an unconnected Store.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := (Policy{Retries: cfg.Retries}).Validate(); err != nil {
		return nil, err
	}
	s := &Store{cfg: cfg, dial: dialPostgres, clock: realClock{}, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Open returns a connected Store.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := s.conn(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	var db *sqlx.DB
	err := retry(ctx, s.clock, s.logger, "connect", Policy{Retries: s.cfg.Retries, Delay: s.cfg.ConnectDelay}, func(ctx context.Context) error {
		d, err := s.dial(ctx, s.cfg.DSN())
		if err != nil {
			return err
		}
		db = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

func (s *Store) reset(db *sqlx.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == db && db != nil {
		_ = db.Close()
		s.db = nil
	}
}

// Query runs query with positional args and loads the result. Transient
// failures reset the connection and are retried after the query delay; a
// missing relation yields ErrUnknownTable.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*table.Table, error) {
	var out *table.Table
	err := retry(ctx, s.clock, s.logger, "query", Policy{Retries: s.cfg.Retries, Delay: s.cfg.QueryDelay}, func(ctx context.Context) error {
		db, err := s.conn(ctx)
		if err != nil {
			return err
		}
		t, err := load(ctx, db, query, args)
		if err != nil {
			if retryable(err) {
				s.reset(db)
			}
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
			return nil, fmt.Errorf("%w: %w", ErrUnknownTable, err)
		}
		return nil, err
	}
	return out, nil
}

// DescribeColumns lists the columns of table in schema order without reading rows.
func (s *Store) DescribeColumns(ctx context.Context, tbl string) ([]string, error) {
	t, err := s.Query(ctx, "SELECT * FROM "+pq.QuoteIdentifier(tbl)+" WHERE FALSE")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", tbl, err)
	}
	return t.Columns(), nil
}

func load(ctx context.Context, db *sqlx.DB, query string, args []any) (*table.Table, error) {
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate column %q", errDecode, c)
		}
		seen[c] = true
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	t := table.New(cols...)
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		cells := make([]table.Value, len(raw))
		for j, v := range raw {
			if cells[j], err = cell(cols[j], types[j].DatabaseTypeName(), v); err != nil {
				return nil, err
			}
		}
		if err := t.Append(cells...); err != nil {
			return nil, err
		}
	}
	return t, rows.Err()
}
