package ops

import (
	"slurmdbdops/internal/dbdconf"
	"slurmdbdops/internal/logging"
)

// ConfEntry is one slurmdbd.conf key with its raw value.
type ConfEntry struct {
	Key   dbdconf.Token
	Value string
}

// ConfEntries returns the configuration file's entries in file order.
func (m *Manager) ConfEntries() ([]ConfEntry, error) {
	ed, err := dbdconf.Open(m.cfg.ConfFile())
	if err != nil {
		return nil, err
	}
	defer ed.Close()

	entries := make([]ConfEntry, 0, ed.Len())
	for _, tok := range ed.Tokens() {
		v, _ := ed.Value(tok)
		entries = append(entries, ConfEntry{Key: tok, Value: v})
	}
	return entries, nil
}

// ConfValue returns the raw value stored for one key; ok reports
// whether the key is set. An unrecognized key name is an error.
func (m *Manager) ConfValue(name string) (value string, ok bool, err error) {
	tok, err := dbdconf.Lookup(name)
	if err != nil {
		return "", false, err
	}

	ed, err := dbdconf.Open(m.cfg.ConfFile())
	if err != nil {
		return "", false, err
	}
	defer ed.Close()

	value, ok = ed.Value(tok)
	return value, ok, nil
}

// ConfSet validates and writes one key through the editor, then
// refreshes the file's drift baseline.
func (m *Manager) ConfSet(name, raw string) error {
	tok, err := dbdconf.Lookup(name)
	if err != nil {
		m.audit.Failure(logging.AuditEventConfChange, "set", name, err)
		return err
	}

	ed, err := dbdconf.Open(m.cfg.ConfFile())
	if err != nil {
		return err
	}
	defer ed.Close()

	if err := ed.SetRaw(tok, raw); err != nil {
		m.audit.Failure(logging.AuditEventConfChange, "set", name, err)
		return err
	}
	if err := ed.Dump(); err != nil {
		return err
	}
	if _, err := m.journalFile(ed.Path(), ed.Len()); err != nil {
		return err
	}

	m.log.Info("set configuration key", "key", name)
	m.audit.Success(logging.AuditEventConfChange, "set", name, nil)
	return nil
}

// ConfUnset deletes one key. Deleting a key that is not set fails
// with the editor's KeyNotPresentError.
func (m *Manager) ConfUnset(name string) error {
	tok, err := dbdconf.Lookup(name)
	if err != nil {
		m.audit.Failure(logging.AuditEventConfChange, "unset", name, err)
		return err
	}

	ed, err := dbdconf.Open(m.cfg.ConfFile())
	if err != nil {
		return err
	}
	defer ed.Close()

	if err := ed.Delete(tok); err != nil {
		m.audit.Failure(logging.AuditEventConfChange, "unset", name, err)
		return err
	}
	if err := ed.Dump(); err != nil {
		return err
	}
	if _, err := m.journalFile(ed.Path(), ed.Len()); err != nil {
		return err
	}

	m.log.Info("unset configuration key", "key", name)
	m.audit.Success(logging.AuditEventConfChange, "unset", name, nil)
	return nil
}

// ConfClear empties the configuration file down to its banner.
func (m *Manager) ConfClear() error {
	ed, err := dbdconf.Open(m.cfg.ConfFile())
	if err != nil {
		return err
	}
	defer ed.Close()

	ed.Clear()
	if err := ed.Dump(); err != nil {
		return err
	}
	if _, err := m.journalFile(ed.Path(), 0); err != nil {
		return err
	}

	m.log.Info("cleared configuration", "path", ed.Path())
	m.audit.Success(logging.AuditEventConfChange, "clear", ed.Path(), nil)
	return nil
}
