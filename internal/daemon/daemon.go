package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"cuescout/internal/catalog"
	"cuescout/internal/config"
	"cuescout/internal/feedback"
	"cuescout/internal/hub"
	"cuescout/internal/logging"
	"cuescout/internal/pipeline"
)

// Daemon owns the HTTP surface and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	runner   *pipeline.Runner
	feedback *feedback.Service
	journal  *feedback.Journal
	statuses *hub.Hub

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	api     *apiServer
}

// New constructs a daemon with initialized dependencies. The journal may be
// nil when verdict journaling is disabled.
func New(cfg *config.Config, store *catalog.Store, runner *pipeline.Runner, fb *feedback.Service, journal *feedback.Journal, statuses *hub.Hub, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || fb == nil || statuses == nil {
		return nil, errors.New("daemon requires config, catalog store, runner, feedback service, and status hub")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "cuescoutd.lock")
	d := &Daemon{
		cfg:      cfg,
		store:    store,
		logger:   logging.WithComponent(logger, "daemon"),
		runner:   runner,
		feedback: fb,
		journal:  journal,
		statuses: statuses,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock and brings up the API server. The daemon
// shuts down when ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return errors.New("another cuescout daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop tears down the API server and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release instance lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Addr reports the API server's listen address, empty before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}
