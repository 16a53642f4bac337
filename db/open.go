package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendJSON     Backend = "json"
)

// Options selects and configures a backend
type Options struct {
	Backend    Backend
	SQLitePath string
	Postgres   PostgresConfig
	DataDir    string
}

// MigrationURL is the database address golang-migrate is given
func (o Options) MigrationURL() string {
	if o.Backend == BackendPostgres {
		return o.Postgres.URL()
	}
	return o.SQLitePath
}

// Open returns the configured store. SQL backends are migrated first.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		if err := Migrate(BackendSQLite, opts.SQLitePath); err != nil {
			return nil, err
		}
		return OpenSQLite(opts.SQLitePath)
	case BackendPostgres:
		if err := Migrate(BackendPostgres, opts.Postgres.URL()); err != nil {
			return nil, err
		}
		return OpenPostgres(opts.Postgres)
	case BackendJSON:
		return OpenJSON(filepath.Clean(opts.DataDir))
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBackend, opts.Backend)
}

// OpenWithRetry keeps calling Open with exponential backoff until it
// succeeds, maxElapsed passes or ctx is done. A postgres server that is
// still starting is the usual reason to wait.
func OpenWithRetry(ctx context.Context, opts Options, maxElapsed time.Duration) (Store, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.Multiplier = 1.5
	policy.MaxElapsedTime = maxElapsed

	return backoff.RetryNotifyWithData(func() (Store, error) {
		store, err := Open(opts)
		if errors.Is(err, ErrUnknownBackend) {
			return nil, backoff.Permanent(err)
		}
		return store, err
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"backend": opts.Backend,
			"error":   err,
			"retry":   wait,
		}).Warn("Could not open store, retrying")
	})
}
