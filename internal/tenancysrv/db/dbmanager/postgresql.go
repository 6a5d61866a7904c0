// Package dbmanager provides functionality for managing the PostgreSQL database connection pool and executing queries.
package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
)

// PostgresConn represents a connection to the PostgreSQL database.
type postgresConn struct {
	conn             *sql.Conn
	cancel           context.CancelFunc
	scopes           map[string]string
	configuredScopes []string
	pool             *postgresPool
}

// PostgresPool represents a pool of PostgreSQL database connections.
type postgresPool struct {
	configuredScopes []string
	lockTimeout      string
	statementTimeout string
	connRequests     atomic.Uint64
	connReturns      atomic.Uint64
	db               *sql.DB
}

// NewPostgresqlDb opens the pool described by dbCfg and waits for the server to answer,
// retrying with backoff for ConnectAttempts tries.
func NewPostgresqlDb(ctx context.Context, dbCfg config.DBConfig, configuredScopes []string) (ScopedDb, error) {
	sqlDB, err := sql.Open("pgx", dbCfg.DSN())
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open db")
		return nil, err
	}
	if dbCfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	}
	if dbCfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}

	attempts := dbCfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(func() error {
		return sqlDB.PingContext(ctx)
	}, retry.Attempts(attempts),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Uint("attempt", n+1).Msg("database not reachable, retrying")
		}),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping db")
		sqlDB.Close()
		return nil, err
	}

	return NewScopedPool(sqlDB, dbCfg, configuredScopes), nil
}

// NewScopedPool wraps an open pool.
func NewScopedPool(sqlDB *sql.DB, dbCfg config.DBConfig, configuredScopes []string) ScopedDb {
	return &postgresPool{
		configuredScopes: configuredScopes,
		lockTimeout:      dbCfg.LockTimeout,
		statementTimeout: dbCfg.StatementTimeout,
		db:               sqlDB,
	}
}

// Conn returns a new connection to the PostgreSQL database from the connection pool.
func (p *postgresPool) Conn(ctx context.Context) (ScopedConn, error) {
	ctx, cancel := context.WithCancel(ctx)

	// Obtain a connection from the database connection pool.
	conn, err := p.db.Conn(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, err
	}

	fail := func(msg string, err error) (ScopedConn, error) {
		log.Ctx(ctx).Error().Err(err).Msg(msg)
		conn.Close()
		cancel()
		return nil, err
	}
	if p.lockTimeout != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET lock_timeout = '%s'", p.lockTimeout)); err != nil {
			return fail("failed to set lock timeout", err)
		}
	}
	if p.statementTimeout != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET statement_timeout = '%s'", p.statementTimeout)); err != nil {
			return fail("failed to set statement timeout", err)
		}
	}

	h := &postgresConn{
		configuredScopes: p.configuredScopes,
		scopes:           make(map[string]string),
		cancel:           cancel,
		pool:             p,
		conn:             conn,
	}

	// Clean up the scopes, just in case.
	if err := h.DropScopes(ctx, p.configuredScopes); err != nil {
		return fail("failed to reset scopes", err)
	}

	p.connRequests.Add(1)
	return h, nil
}

// Stats returns the number of connection requests and returns made to the PostgreSQL database.
func (p *postgresPool) Stats() (requests, returns uint64) {
	return p.connRequests.Load(), p.connReturns.Load()
}

func (p *postgresPool) DB() *sql.DB {
	return p.db
}

func (p *postgresPool) Close() error {
	return p.db.Close()
}

// Close cleans up the scopes and returns the connection back to the pool.
func (h *postgresConn) Close(ctx context.Context) {
	h.DropAllScopes(ctx)
	if h.conn != nil {
		h.conn.Close()
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.pool.connReturns.Add(1)
}

// IsConfiguredScope checks if the given scope is configured in the PostgresConn.
func (h *postgresConn) IsConfiguredScope(scope string) bool {
	return slices.Contains(h.configuredScopes, scope)
}

// AddScopes adds the given scopes to the PostgresConn.
func (h *postgresConn) AddScopes(ctx context.Context, scopes map[string]string) error {
	for scope, value := range scopes {
		if err := h.AddScope(ctx, scope, value); err != nil {
			return err
		}
	}
	return nil
}

// AddScope sets a configured session variable on the connection. Unknown scopes are ignored.
func (h *postgresConn) AddScope(ctx context.Context, scope, value string) error {
	if h.conn == nil || !h.IsConfiguredScope(scope) {
		return nil
	}
	// SET does not take bind parameters, set_config does.
	if _, err := h.conn.ExecContext(ctx, "SELECT set_config($1, $2, false)", scope, value); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("scope", scope).Msg("failed to set scope")
		return err
	}
	h.scopes[scope] = value
	return nil
}

// AuthorizedScopes returns the currently authorized scopes in the PostgresConn.
func (h *postgresConn) AuthorizedScopes() map[string]string {
	return h.scopes
}

// DropScopes drops the given scopes from the PostgresConn.
func (h *postgresConn) DropScopes(ctx context.Context, scopes []string) error {
	for _, scope := range scopes {
		if err := h.DropScope(ctx, scope); err != nil {
			return err
		}
	}
	return nil
}

// DropScope drops a single scope from the PostgresConn.
func (h *postgresConn) DropScope(ctx context.Context, scope string) error {
	if h.conn == nil {
		return nil
	}
	sqlCmd := fmt.Sprintf("RESET %s", scope)
	_, err := h.conn.ExecContext(ctx, sqlCmd)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to reset scope")
		return err
	}
	delete(h.scopes, scope)
	return nil
}

// DropAllScopes drops all the configured scopes from the PostgresConn.
func (h *postgresConn) DropAllScopes(ctx context.Context) error {
	return h.DropScopes(ctx, h.configuredScopes)
}

// Conn returns the underlying connection of the PostgresConn.
func (h *postgresConn) Conn() *sql.Conn {
	return h.conn
}
