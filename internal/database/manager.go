package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/danmuck/commons/internal/localization"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var (
	ErrUnsupportedDriver = errors.New("database: unsupported driver")
	ErrInvalidConfig     = errors.New("database: invalid config")
	ErrClosed            = errors.New("database: manager closed")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and addresses the backing database.
type Config struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Debug    bool
}

// DSN renders the driver-specific data source name.
func (c Config) DSN() (string, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case DriverSQLite:
		path := strings.TrimSpace(c.Path)
		if path == "" {
			return "", fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
		}
		if path == ":memory:" {
			return path, nil
		}
		return filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	case DriverPostgres:
		host := strings.TrimSpace(c.Host)
		if host == "" {
			return "", fmt.Errorf("%w: postgres host is required", ErrInvalidConfig)
		}
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("%w: postgres database name is required", ErrInvalidConfig)
		}
		port := c.Port
		if port == 0 {
			port = 5432
		}
		u := url.URL{
			Scheme:   "postgres",
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			Path:     "/" + c.Name,
			RawQuery: "sslmode=disable",
		}
		if c.User != "" {
			if c.Password != "" {
				u.User = url.UserPassword(c.User, c.Password)
			} else {
				u.User = url.User(c.User)
			}
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// Manager executes statements against one open database.
type Manager struct {
	db     atomic.Pointer[sql.DB]
	driver string
	debug  atomic.Bool
	log    zerolog.Logger
	loc    *localization.Localizer
}

// Open connects to the configured database and pings it once.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger, loc *localization.Localizer) (*Manager, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == DriverSQLite {
		// :memory: databases exist per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	if loc == nil {
		loc = localization.NewLocalizer(nil, localization.BaseLocale)
	}
	m := &Manager{
		driver: driver,
		log:    logger.With().Str("component", "database").Str("driver", driver).Logger(),
		loc:    loc,
	}
	m.db.Store(db)
	m.EnableDebug(cfg.Debug)
	m.log.Info().Msg("database opened")
	return m, nil
}

// Driver returns the driver name the manager was opened with.
func (m *Manager) Driver() string { return m.driver }

// DB exposes the underlying handle for callers that need transactions. It is
// nil once the manager is closed.
func (m *Manager) DB() *sql.DB { return m.db.Load() }

// Rebind rewrites "?" placeholders to the driver's native form. Postgres
// takes "$N"; sqlite accepts "?" as is.
func (m *Manager) Rebind(query string) string {
	if m.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EnableDebug toggles per-statement tracing.
func (m *Manager) EnableDebug(on bool) {
	prev := m.debug.Swap(on)
	if on && !prev {
		m.log.Info().Msg(m.loc.Get(localization.CodeDatabaseDebug))
	}
}

// Debugging reports whether statement tracing is on.
func (m *Manager) Debugging() bool { return m.debug.Load() }

// Exec runs a statement that returns no rows.
func (m *Manager) Exec(ctx context.Context, stmt Statement) (sql.Result, error) {
	db := m.db.Load()
	if db == nil {
		return nil, ErrClosed
	}
	m.trace(stmt)
	res, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", stmt.SQL, err)
	}
	return res, nil
}

// Filter reduces a result set to a value. It must not close rows.
type Filter[T any] func(rows *sql.Rows) (T, error)

// Query runs stmt and hands the rows to filter. Rows are always closed.
func Query[T any](ctx context.Context, m *Manager, stmt Statement, filter Filter[T]) (T, error) {
	var zero T
	db := m.db.Load()
	if db == nil {
		return zero, ErrClosed
	}
	m.trace(stmt)
	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return zero, fmt.Errorf("query %q: %w", stmt.SQL, err)
	}
	defer rows.Close()

	out, err := filter(rows)
	if err != nil {
		return zero, err
	}
	if err := rows.Err(); err != nil {
		return zero, fmt.Errorf("iterate %q: %w", stmt.SQL, err)
	}
	return out, nil
}

// Close releases the database handle. It is safe to call more than once and
// concurrently with statements; statements that start after Close fail with
// ErrClosed.
func (m *Manager) Close() error {
	db := m.db.Swap(nil)
	if db == nil {
		return nil
	}
	err := db.Close()
	m.log.Info().Msg("database closed")
	return err
}

func (m *Manager) trace(stmt Statement) {
	if !m.debug.Load() {
		return
	}
	m.log.Debug().Str("statement", stmt.String()).Msg("database statement")
}
