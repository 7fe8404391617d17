package cli

import (
	"bytes"
	"os"
	"os/user"
	"path/filepath"
	"testing"
)

func TestParseAssignments(t *testing.T) {
	changes, err := parseAssignments([]string{
		"MYSQL_UNIX_PORT=\"/run/mysql/mysql.sock\"",
		"SLURMDBD_OPTIONS=-v",
	})
	if err != nil {
		t.Fatalf("parseAssignments() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if v := changes["MYSQL_UNIX_PORT"]; v == nil || *v != "\"/run/mysql/mysql.sock\"" {
		t.Errorf("unexpected MYSQL_UNIX_PORT value: %v", v)
	}
	if v := changes["SLURMDBD_OPTIONS"]; v == nil || *v != "-v" {
		t.Errorf("unexpected SLURMDBD_OPTIONS value: %v", v)
	}
}

func TestParseAssignments_ValueWithEquals(t *testing.T) {
	changes, err := parseAssignments([]string{"OPTS=a=b"})
	if err != nil {
		t.Fatalf("parseAssignments() error = %v", err)
	}
	if v := changes["OPTS"]; v == nil || *v != "a=b" {
		t.Errorf("expected value a=b, got %v", v)
	}
}

func TestParseAssignments_BareKey(t *testing.T) {
	if _, err := parseAssignments([]string{"MYSQL_UNIX_PORT"}); err == nil {
		t.Error("expected error for a bare key")
	}
}

func TestParseAssignments_EmptyKey(t *testing.T) {
	if _, err := parseAssignments([]string{"=value"}); err == nil {
		t.Error("expected error for an empty key")
	}
}

// writeTestConfig writes a toolkit config whose paths all live under
// dir. The slurm user is the current user so renders chown to the
// owner, a no-op that needs no privileges.
func writeTestConfig(t *testing.T, dir, extra string) string {
	t.Helper()

	u, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}

	content := `
[paths]
conf_file = "` + filepath.Join(dir, "slurmdbd.conf") + `"
defaults_file = "` + filepath.Join(dir, "defaults") + `"
jwt_key_file = "` + filepath.Join(dir, "jwt.key") + `"
state_db = "` + filepath.Join(dir, "state.db") + `"

[slurm]
user = "` + u.Username + `"
group = ""
` + extra

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewApp(t *testing.T) {
	dir := t.TempDir()
	confPath := writeTestConfig(t, dir, "")

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	a, err := NewApp(confPath, true, out, errOut)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	if got := a.Cfg.ConfFile(); got != filepath.Join(dir, "slurmdbd.conf") {
		t.Errorf("unexpected conf file: %s", got)
	}
	if !a.JSON {
		t.Error("expected JSON output enabled")
	}
	if a.Manager == nil {
		t.Fatal("expected a manager")
	}

	// The manager must be usable for file-only operations without a
	// system bus.
	if _, err := a.Manager.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if _, err := os.Stat(a.Cfg.ConfFile()); err != nil {
		t.Errorf("rendered file missing: %v", err)
	}
}

func TestNewAppAuditTrail(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.log")
	confPath := writeTestConfig(t, dir, `
[logging]
audit_path = "`+auditPath+`"
`)

	a, err := NewApp(confPath, false, &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer a.Close()

	if _, err := a.Manager.Render(nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("audit trail missing: %v", err)
	}
	if !bytes.Contains(data, []byte(`"event_type":"render"`)) {
		t.Errorf("expected a render audit event, got: %s", data)
	}
}
