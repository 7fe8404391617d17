package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"slurmdbdops/internal/fsutil"
	"slurmdbdops/internal/logging"
)

// WriteJWTKey installs the key slurmdbd signs JWT auth tokens with.
// The file is written atomically, forced to mode 0600, and owned by
// the slurm account.
func (m *Manager) WriteJWTKey(key []byte) error {
	path := m.cfg.JWTKeyFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := fsutil.WriteAtomic(path, key, 0o600); err != nil {
		m.audit.Failure(logging.AuditEventJWTInstall, "install", path, err)
		return err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := fsutil.Chown(path, m.cfg.Slurm.User, m.cfg.Slurm.Group); err != nil {
		return err
	}

	m.log.Info("installed jwt key", "path", path)
	m.audit.Success(logging.AuditEventJWTInstall, "install", path, nil)
	return nil
}
