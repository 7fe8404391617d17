package ops

import (
	"context"

	"slurmdbdops/internal/logging"
)

// StartService starts the slurmdbd unit.
func (m *Manager) StartService(ctx context.Context) error {
	unit := m.cfg.Service.Unit
	if err := m.sysd.Start(ctx, unit); err != nil {
		m.audit.Failure(logging.AuditEventServiceAction, "start", unit, err)
		return err
	}
	m.log.Info("started unit", "unit", unit)
	m.audit.Success(logging.AuditEventServiceAction, "start", unit, nil)
	return nil
}

// StopService stops the slurmdbd unit.
func (m *Manager) StopService(ctx context.Context) error {
	unit := m.cfg.Service.Unit
	if err := m.sysd.Stop(ctx, unit); err != nil {
		m.audit.Failure(logging.AuditEventServiceAction, "stop", unit, err)
		return err
	}
	m.log.Info("stopped unit", "unit", unit)
	m.audit.Success(logging.AuditEventServiceAction, "stop", unit, nil)
	return nil
}

// RestartService restarts the slurmdbd unit without the verification
// loop. Callers that need slurmdbd confirmed up follow with
// RestartAndVerify.
func (m *Manager) RestartService(ctx context.Context) error {
	unit := m.cfg.Service.Unit
	if err := m.sysd.Restart(ctx, unit); err != nil {
		m.audit.Failure(logging.AuditEventServiceAction, "restart", unit, err)
		return err
	}
	m.log.Info("restarted unit", "unit", unit)
	m.audit.Success(logging.AuditEventServiceAction, "restart", unit, nil)
	return nil
}

// ServiceState reports the slurmdbd unit's active state.
func (m *Manager) ServiceState(ctx context.Context) (string, error) {
	return m.sysd.ActiveState(ctx, m.cfg.Service.Unit)
}
