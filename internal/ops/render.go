package ops

import (
	"context"
	"fmt"
	"os"
	"time"

	"slurmdbdops/internal/dbdconf"
	"slurmdbdops/internal/fsutil"
	"slurmdbdops/internal/logging"
	"slurmdbdops/internal/params"
)

// RenderResult describes one rendered configuration file.
type RenderResult struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Keys     int    `json:"keys"`
}

// assemble merges the parameter layers for a render: operator
// overrides first, then the stored database parameters, then the
// maintained set, so the toolkit-owned values always win. Every value
// must pass raw validation; assembly fails before anything is
// written. A missing database configuration is tolerated with a
// warning so the file can be rendered ahead of the database.
func (m *Manager) assemble(overrides map[dbdconf.Token]string) (map[dbdconf.Token]string, error) {
	db, err := m.Database()
	if err != nil {
		return nil, err
	}
	var dbParams map[dbdconf.Token]string
	if db != nil {
		dbParams = db.Parameters()
	} else {
		m.log.Warn("no database configured, rendering without storage settings")
	}

	merged := params.Merge(overrides, dbParams, params.Maintained(m.cfg.Slurm.User))
	for tok, v := range merged {
		if v == "" {
			continue
		}
		if err := dbdconf.ValidateRaw(tok, v); err != nil {
			return nil, fmt.Errorf("assemble parameters: %w", err)
		}
	}
	return merged, nil
}

// Render writes the slurmdbd configuration file from the maintained
// parameters, the stored database settings, and any operator
// overrides. Keys are written in their declared order and empty
// values are skipped. The rendered file ends up mode 0600 owned by
// the slurm account, and its checksum is journaled for drift
// detection.
func (m *Manager) Render(overrides map[dbdconf.Token]string) (*RenderResult, error) {
	path := m.cfg.ConfFile()

	merged, err := m.assemble(overrides)
	if err != nil {
		m.audit.Failure(logging.AuditEventRender, "render", path, err)
		return nil, err
	}

	ed, err := dbdconf.Open(path)
	if err != nil {
		m.audit.Failure(logging.AuditEventRender, "render", path, err)
		return nil, err
	}
	defer ed.Close()

	ed.Clear()
	for _, tok := range dbdconf.Tokens() {
		v, ok := merged[tok]
		if !ok || v == "" {
			continue
		}
		if err := ed.SetRaw(tok, v); err != nil {
			m.audit.Failure(logging.AuditEventRender, "render", path, err)
			return nil, err
		}
	}

	if err := ed.Dump(); err != nil {
		m.audit.Failure(logging.AuditEventRender, "render", path, err)
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := fsutil.Chown(path, m.cfg.Slurm.User, m.cfg.Slurm.Group); err != nil {
		return nil, err
	}

	sum, err := m.journalFile(path, ed.Len())
	if err != nil {
		return nil, err
	}

	m.log.Info("rendered slurmdbd.conf", "path", path, "keys", ed.Len(), "checksum", sum)
	m.audit.Success(logging.AuditEventRender, "render", path, map[string]any{
		"keys":     ed.Len(),
		"checksum": sum,
	})
	return &RenderResult{Path: path, Checksum: sum, Keys: ed.Len()}, nil
}

// RenderAndRestart stops slurmdbd, renders the configuration file,
// and brings the service back up with RestartAndVerify. The unit is
// stopped for the whole rewrite so it never reads a half-written
// file.
func (m *Manager) RenderAndRestart(ctx context.Context, overrides map[dbdconf.Token]string) (*RenderResult, error) {
	unit := m.cfg.Service.Unit
	if err := m.sysd.Stop(ctx, unit); err != nil {
		m.audit.Failure(logging.AuditEventServiceAction, "stop", unit, err)
		return nil, err
	}

	res, err := m.Render(overrides)
	if err != nil {
		return nil, err
	}

	if err := m.RestartAndVerify(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// RestartAndVerify makes sure the slurmdbd unit is running. While the
// unit reports anything but active it is restarted and rechecked,
// waiting a little longer before each further attempt. A unit that
// never settles yields ErrCannotStart.
func (m *Manager) RestartAndVerify(ctx context.Context) error {
	unit := m.cfg.Service.Unit
	attempts := m.cfg.Service.RestartAttempts
	if attempts < 1 {
		attempts = 1
	}

	restarted := false
	for i := 0; i < attempts; i++ {
		active, err := m.unitActive(ctx, unit)
		if err != nil {
			return err
		}
		if active {
			break
		}
		m.log.Warn("slurmdbd not running, trying to start it", "unit", unit, "attempt", i+1)
		if err := m.sysd.Restart(ctx, unit); err != nil {
			m.audit.Failure(logging.AuditEventServiceAction, "restart", unit, err)
			return err
		}
		restarted = true
		m.sleep(time.Duration(m.cfg.Service.RestartBaseDelaySec+i) * time.Second)
	}

	active, err := m.unitActive(ctx, unit)
	if err != nil {
		return err
	}
	if !active {
		m.audit.Failure(logging.AuditEventServiceAction, "restart", unit, ErrCannotStart)
		return ErrCannotStart
	}

	m.log.Debug("slurmdbd running", "unit", unit)
	if restarted {
		m.audit.Success(logging.AuditEventServiceAction, "restart", unit, nil)
	}
	return nil
}

func (m *Manager) unitActive(ctx context.Context, unit string) (bool, error) {
	st, err := m.sysd.ActiveState(ctx, unit)
	if err != nil {
		return false, err
	}
	return st == "active", nil
}

// journalFile records the current checksum of path in the render
// journal, giving the drift watch its baseline. Every operation that
// rewrites a managed file goes through here.
func (m *Manager) journalFile(path string, keyCount int) (string, error) {
	sum, err := fsutil.Checksum(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	if _, err := m.store.RecordRender(path, sum, keyCount); err != nil {
		return "", err
	}
	return sum, nil
}
