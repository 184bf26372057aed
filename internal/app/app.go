// Package app wires configuration, adapters and stores into the postwatch
// commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/qepting91/postwatch/internal/collector"
	"github.com/qepting91/postwatch/internal/config"
	"github.com/qepting91/postwatch/internal/domain"
	"github.com/qepting91/postwatch/internal/notify"
	"github.com/qepting91/postwatch/internal/runlock"
	"github.com/qepting91/postwatch/internal/storage"
	"github.com/rs/zerolog"
)

// App holds everything one command invocation needs. Nothing here is global,
// so tests build an App per case.
type App struct {
	cfg       config.Settings
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
	out       io.Writer
	collector domain.Collector
	buckets   *storage.DailyStore
	lock      runlock.Lock
	senders   []notify.Sender
}

type Option func(*App)

func WithLogger(l zerolog.Logger) Option {
	return func(a *App) { a.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithCollector replaces the adapter built from the collector settings.
func WithCollector(c domain.Collector) Option {
	return func(a *App) { a.collector = c }
}

// WithLock replaces the lock built from lock_backend.
func WithLock(l runlock.Lock) Option {
	return func(a *App) { a.lock = l }
}

// WithSenders replaces the delivery channels built from the mail and WeChat settings.
func WithSenders(s ...notify.Sender) Option {
	return func(a *App) { a.senders = s }
}

// WithOutput sets where dry-run digests are printed.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

func New(cfg config.Settings, opts ...Option) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	a := &App{
		cfg:     cfg,
		loc:     loc,
		log:     zerolog.Nop(),
		now:     time.Now,
		out:     os.Stdout,
		buckets: storage.NewDailyStore(cfg.DataDir),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.collector == nil {
		c, err := collector.NewCollector(a.collectorOptions())
		if err != nil {
			return nil, err
		}
		a.collector = c
	}
	return a, nil
}

func (a *App) collectorOptions() collector.Options {
	return collector.Options{
		Mode:      a.cfg.CollectorMode,
		Timeout:   a.cfg.FetchTimeout,
		Interval:  a.cfg.FetchInterval,
		UserAgent: a.cfg.UserAgent,
		Selectors: collector.Selectors{
			Item:        a.cfg.HTMLItemSelector,
			Link:        a.cfg.HTMLLinkSelector,
			Time:        a.cfg.HTMLTimeSelector,
			NamePattern: a.cfg.HTMLNamePattern,
		},
		Reddit: collector.RedditCredentials{
			ClientID:     a.cfg.RedditClientID,
			ClientSecret: a.cfg.RedditClientSecret,
			Username:     a.cfg.RedditUsername,
			Password:     a.cfg.RedditPassword,
		},
		Location: a.loc,
		Now:      a.now,
	}
}

// openHistory opens and loads the configured history backend. A load
// failure closes the store and is fatal to the caller.
func (a *App) openHistory() (storage.History, error) {
	var h storage.History
	if a.cfg.StoreBackend == "sqlite" {
		if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := storage.OpenSQLiteHistory(a.cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
		h = s
	} else {
		h = storage.NewJSONHistory(a.cfg.HistoryPath())
	}

	if _, err := h.Load(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// acquire takes the run lock and returns its release func.
func (a *App) acquire(ctx context.Context, owner string, log zerolog.Logger) (func(), error) {
	lock := a.lock
	if lock == nil {
		l, err := runlock.New(ctx, a.cfg.LockBackend, a.cfg.LockPath(), a.cfg.RedisURL, owner, a.cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		lock = l
	}
	if err := lock.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("failed to release run lock")
		}
	}, nil
}

func (a *App) today() domain.Day {
	return domain.DayOf(a.now(), a.loc)
}
