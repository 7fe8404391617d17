package ops

import (
	"os"
	"sort"
	"strings"

	"slurmdbdops/internal/envfile"
	"slurmdbdops/internal/logging"
)

// ApplyEnv applies KEY=VALUE changes to the environment defaults file
// and refreshes its journal entry so the drift watch keeps a current
// baseline. A nil change value unsets the key.
func (m *Manager) ApplyEnv(changes map[string]*string) error {
	path := m.cfg.DefaultsFile()
	if err := envfile.Apply(path, changes); err != nil {
		m.audit.Failure(logging.AuditEventEnvChange, "apply", path, err)
		return err
	}
	if _, err := m.journalFile(path, countDeclarations(path)); err != nil {
		return err
	}

	var set, unset []string
	for k, v := range changes {
		if v == nil {
			unset = append(unset, strings.ToUpper(k))
		} else {
			set = append(set, strings.ToUpper(k))
		}
	}
	sort.Strings(set)
	sort.Strings(unset)

	m.log.Info("updated environment defaults", "path", path, "set", set, "unset", unset)
	m.audit.Success(logging.AuditEventEnvChange, "apply", path, map[string]any{
		"set":   set,
		"unset": unset,
	})
	return nil
}

// countDeclarations counts the KEY=VALUE lines in an environment
// defaults file. Comments and opaque lines do not count.
func countDeclarations(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		n++
	}
	return n
}
