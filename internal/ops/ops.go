// Package ops implements the slurmdbd management operations: rendering
// the configuration file, wiring the accounting database connection,
// restarting the service with verification, installing auth material,
// and checking munge. A Manager composes the editors, the state store,
// and the service manager connection; commands drive it.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"slurmdbdops/internal/config"
	"slurmdbdops/internal/logging"
	"slurmdbdops/internal/params"
	"slurmdbdops/internal/state"
)

// stateKeyDatabase is the kv key the accounting database settings are
// stored under.
const stateKeyDatabase = "database"

// ErrCannotStart reports that slurmdbd stayed inactive through every
// restart attempt.
var ErrCannotStart = errors.New("cannot start slurmdbd")

// Systemd is the slice of the service manager the operations need.
// *service.Conn implements it; tests substitute a fake.
type Systemd interface {
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Restart(ctx context.Context, unit string) error
	ActiveState(ctx context.Context, unit string) (string, error)
}

// Manager runs slurmdbd management operations against one toolkit
// configuration.
type Manager struct {
	cfg   *config.Config
	store *state.Store
	sysd  Systemd
	audit *logging.AuditLogger
	log   *slog.Logger

	// sleep and the munge binaries are swappable for tests.
	sleep      func(time.Duration)
	mungeBin   string
	unmungeBin string
}

// NewManager returns a Manager over the given configuration, state
// store, and service manager connection. audit may be nil to disable
// the audit trail.
func NewManager(cfg *config.Config, store *state.Store, sysd Systemd, audit *logging.AuditLogger) *Manager {
	return &Manager{
		cfg:        cfg,
		store:      store,
		sysd:       sysd,
		audit:      audit,
		log:        slog.Default(),
		sleep:      time.Sleep,
		mungeBin:   "munge",
		unmungeBin: "unmunge",
	}
}

// Database returns the stored accounting database settings, or nil
// when none have been configured yet.
func (m *Manager) Database() (*params.Database, error) {
	var db params.Database
	err := m.store.Get(stateKeyDatabase, &db)
	if errors.Is(err, state.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &db, nil
}
