package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// ConnectOptions tunes Connect. Zero values pick the defaults.
type ConnectOptions struct {
	// Wait bounds how long Connect keeps pinging a database that is still
	// starting up.
	Wait         time.Duration
	PingTimeout  time.Duration
	MaxOpenConns int
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.Wait <= 0 {
		o.Wait = 30 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.MaxOpenConns <= 0 {
		// One pass and a handful of API requests at a time.
		o.MaxOpenConns = 4
	}
	return o
}

// Connect opens the state database through the pgx driver and blocks until
// it answers a ping or opts.Wait runs out.
func Connect(ctx context.Context, dsn string, opts ConnectOptions) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	opts = opts.withDefaults()
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := waitReady(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// waitReady pings with exponential backoff capped at five seconds.
func waitReady(ctx context.Context, db *sql.DB, opts ConnectOptions) error {
	deadline := time.Now().Add(opts.Wait)
	backoff := 250 * time.Millisecond

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().Add(backoff).After(deadline) {
			return fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
		}

		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("database not ready, retrying")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, 5*time.Second)
	}
}
