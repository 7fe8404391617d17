package ops

import (
	"context"
	"os"

	"slurmdbdops/internal/fsutil"
	"slurmdbdops/internal/health"
)

// HealthChecker builds the component checker behind the status
// command. Registration order fixes how aggregate messages enumerate
// components.
func (m *Manager) HealthChecker() *health.Checker {
	hc := health.NewChecker()
	hc.RegisterFunc("config-file", m.checkConfigFile)
	hc.RegisterFunc("database", m.checkDatabase)
	hc.RegisterFunc("munge", m.checkMungeComponent)
	hc.RegisterFunc("service", m.checkService)
	return hc
}

// checkConfigFile verifies the rendered configuration is on disk and
// still matches the last journaled render.
func (m *Manager) checkConfigFile(ctx context.Context) health.Result {
	path := m.cfg.ConfFile()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return health.Result{State: health.StateBlocked, Message: "slurmdbd.conf not rendered"}
		}
		return health.Result{State: health.StateBlocked, Message: "cannot read slurmdbd.conf", Error: err.Error()}
	}

	last, err := m.store.LastRender(path)
	if err != nil {
		return health.Result{State: health.StateBlocked, Message: "render journal unavailable", Error: err.Error()}
	}
	if last != nil {
		sum, err := fsutil.Checksum(path)
		if err != nil {
			return health.Result{State: health.StateBlocked, Message: "cannot read slurmdbd.conf", Error: err.Error()}
		}
		if sum != last.Checksum {
			return health.Result{State: health.StateWaiting, Message: "slurmdbd.conf differs from the last render"}
		}
	}
	return health.Result{State: health.StateActive, Message: "slurmdbd.conf in place"}
}

// checkDatabase verifies accounting database settings are stored.
func (m *Manager) checkDatabase(ctx context.Context) health.Result {
	db, err := m.Database()
	if err != nil {
		return health.Result{State: health.StateBlocked, Message: "cannot load database settings", Error: err.Error()}
	}
	if db == nil {
		return health.Result{State: health.StateBlocked, Message: "database not configured"}
	}
	target := "local socket"
	if db.Host != "" {
		target = db.Host + ":" + db.Port
	}
	return health.Result{State: health.StateActive, Message: "database configured: " + target}
}

// checkMungeComponent runs the munge credential round trip.
func (m *Manager) checkMungeComponent(ctx context.Context) health.Result {
	if err := m.CheckMunge(ctx); err != nil {
		return health.Result{State: health.StateWaiting, Message: "munged starting", Error: err.Error()}
	}
	return health.Result{State: health.StateActive, Message: "munge working as expected"}
}

// checkService verifies the slurmdbd unit is active.
func (m *Manager) checkService(ctx context.Context) health.Result {
	state, err := m.sysd.ActiveState(ctx, m.cfg.Service.Unit)
	if err != nil {
		return health.Result{State: health.StateBlocked, Message: "cannot query systemd", Error: err.Error()}
	}
	if state != "active" {
		return health.Result{State: health.StateWaiting, Message: "slurmdbd starting"}
	}
	return health.Result{State: health.StateActive, Message: "slurmdbd running"}
}
