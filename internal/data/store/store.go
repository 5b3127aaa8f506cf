// Package store owns the single SQLite connection and exposes typed record operations over it.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bezcukru/app/internal/data/database"
	"bezcukru/app/internal/data/migrations"
)

var (
	// ErrClosed is returned by operations issued after Close.
	ErrClosed = eris.New("record store is closed")
	// ErrDeleteMismatch reports that a strict delete matched fewer rows than requested.
	ErrDeleteMismatch = eris.New("deleted row count does not match requested ids")
	// ErrUnknownField reports a query referencing a column the collection does not have.
	ErrUnknownField = eris.New("unknown field")
)

// ConnectFunc opens and prepares the database.
type ConnectFunc func(ctx context.Context) (*gorm.DB, error)

// Options configures a Store.
type Options struct {
	Path        string
	Logger      *logrus.Logger
	BusyTimeout time.Duration
	// Connect overrides the default open-and-migrate sequence.
	Connect ConnectFunc
}

type initAttempt struct {
	done chan struct{}
	db   *gorm.DB
	err  error
}

// Store lazily opens the database on first use. Concurrent first callers share one
// initialization; a failed initialization is forgotten so a later call can retry.
type Store struct {
	connect ConnectFunc
	logger  *logrus.Logger

	mu      sync.Mutex
	attempt *initAttempt
	closed  bool

	schemas sync.Map
}

// New constructs a Store without touching the database.
func New(opts Options) (*Store, error) {
	s := &Store{connect: opts.Connect, logger: opts.Logger}
	if s.connect != nil {
		return s, nil
	}

	if opts.Path == "" {
		return nil, eris.New("database path is required")
	}

	s.connect = func(ctx context.Context) (*gorm.DB, error) {
		db, err := database.Open(database.Options{
			Path:         opts.Path,
			Logger:       database.NewLogger(opts.Logger),
			BusyTimeout:  opts.BusyTimeout,
			MaxOpenConns: 1,
		})
		if err != nil {
			return nil, err
		}

		if err := migrations.Migrate(ctx, db, opts.Logger); err != nil {
			_ = database.Close(db)
			return nil, err
		}

		return db, nil
	}

	return s, nil
}

// Ready forces initialization and reports its outcome.
func (s *Store) Ready(ctx context.Context) error {
	_, err := s.db(ctx)
	return err
}

// DB returns the initialized connection bound to ctx.
func (s *Store) DB(ctx context.Context) (*gorm.DB, error) {
	return s.db(ctx)
}

// Close waits for an in-flight initialization and releases the connection. It is safe to call
// on a store that was never used.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	attempt := s.attempt
	s.mu.Unlock()

	if attempt == nil {
		return nil
	}

	<-attempt.done
	if attempt.err != nil {
		return nil
	}

	if err := database.Close(attempt.db); err != nil {
		s.logError(nil, err, "closing record store")
		return err
	}

	s.entry().Debug("record store closed")
	return nil
}

func (s *Store) db(ctx context.Context) (*gorm.DB, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	attempt := s.attempt
	if attempt == nil {
		attempt = &initAttempt{done: make(chan struct{})}
		s.attempt = attempt
		go s.initialize(context.WithoutCancel(ctx), attempt)
	}
	s.mu.Unlock()

	select {
	case <-attempt.done:
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "waiting for record store initialization")
	}

	if attempt.err != nil {
		return nil, attempt.err
	}

	return attempt.db.WithContext(ctx), nil
}

func (s *Store) initialize(ctx context.Context, attempt *initAttempt) {
	defer close(attempt.done)

	s.entry().Debug("initializing record store")

	db, err := s.connect(ctx)
	if err != nil {
		attempt.err = eris.Wrap(err, "initializing record store")
		s.logError(nil, err, "record store initialization failed")

		s.mu.Lock()
		if s.attempt == attempt {
			s.attempt = nil
		}
		s.mu.Unlock()
		return
	}

	attempt.db = db
	s.entry().Debug("record store initialized")
}

func (s *Store) entry() *logrus.Entry {
	logger := s.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithField("component", "store")
}

func (s *Store) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.entry().WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
