package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slurmdbdops/internal/config"
	"slurmdbdops/internal/dbdconf"
	"slurmdbdops/internal/envfile"
	"slurmdbdops/internal/fsutil"
	"slurmdbdops/internal/params"
	"slurmdbdops/internal/state"
)

// fakeSystemd records unit actions and serves scripted active states.
// Each unit has a queue of states; the last entry repeats once the
// queue drains. Health checks probe units concurrently, so access is
// locked.
type fakeSystemd struct {
	mu      sync.Mutex
	actions []string
	states  map[string][]string

	startErr   error
	stopErr    error
	restartErr error
}

func newFakeSystemd() *fakeSystemd {
	return &fakeSystemd{states: map[string][]string{}}
}

func (f *fakeSystemd) Start(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, "start "+unit)
	return f.startErr
}

func (f *fakeSystemd) Stop(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, "stop "+unit)
	return f.stopErr
}

func (f *fakeSystemd) Restart(_ context.Context, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, "restart "+unit)
	return f.restartErr
}

func (f *fakeSystemd) ActiveState(_ context.Context, unit string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.states[unit]
	if len(q) == 0 {
		return "inactive", nil
	}
	st := q[0]
	if len(q) > 1 {
		f.states[unit] = q[1:]
	}
	return st, nil
}

func (f *fakeSystemd) restarts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.actions {
		if strings.HasPrefix(a, "restart ") {
			n++
		}
	}
	return n
}

// newTestManager builds a Manager over temp paths, a real state store,
// and the given fake. Slurm user and group are left empty so renders
// skip the chown, and retry sleeps are disabled.
func newTestManager(t *testing.T, sysd *fakeSystemd) *Manager {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.ConfFile = filepath.Join(dir, "slurmdbd.conf")
	cfg.Paths.DefaultsFile = filepath.Join(dir, "defaults")
	cfg.Paths.JWTKeyFile = filepath.Join(dir, "spool", "jwt_hs256.key")
	cfg.Paths.StateDB = filepath.Join(dir, "state.db")
	cfg.Slurm.User = ""
	cfg.Slurm.Group = ""

	store, err := state.Open(cfg.StateDB())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewManager(cfg, store, sysd, nil)
	m.sleep = func(time.Duration) {}
	return m
}

// recordSleeps replaces m.sleep with a recorder and returns the log.
func recordSleeps(m *Manager) *[]time.Duration {
	var sleeps []time.Duration
	m.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return &sleeps
}

// confLines reads the rendered file and strips the banner.
func confLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3, "banner missing")
	return lines[3:]
}

func TestRenderMaintainedOnly(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	res, err := m.Render(nil)
	require.NoError(t, err)

	// SlurmUser is empty in tests and is skipped like any empty value.
	want := []string{
		`AuthInfo="socket=/run/munge/munge.socket.2"`,
		"AuthType=auth/munge",
		"DbdPort=6819",
		"LogFile=/var/log/slurm/slurmdbd.log",
		"PidFile=/run/slurmdbd.pid",
		"StorageType=accounting_storage/mysql",
	}
	assert.Equal(t, want, confLines(t, res.Path))
	assert.Equal(t, len(want), res.Keys)
}

func TestRenderWithDatabase(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	require.NoError(t, m.SetDatabase(params.Database{
		Username: "slurmdbd",
		Password: "s3cret",
		Name:     params.DefaultDatabaseName,
		Host:     "10.0.0.5",
		Port:     "3306",
	}))

	res, err := m.Render(nil)
	require.NoError(t, err)

	want := []string{
		`AuthInfo="socket=/run/munge/munge.socket.2"`,
		"AuthType=auth/munge",
		"DbdPort=6819",
		"LogFile=/var/log/slurm/slurmdbd.log",
		"PidFile=/run/slurmdbd.pid",
		"StorageHost=10.0.0.5",
		"StorageLoc=slurm_acct_db",
		"StoragePass=s3cret",
		"StoragePort=3306",
		"StorageType=accounting_storage/mysql",
		"StorageUser=slurmdbd",
	}
	assert.Equal(t, want, confLines(t, res.Path))
}

func TestRenderOverrides(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	res, err := m.Render(map[dbdconf.Token]string{
		dbdconf.DebugLevel: "debug5",
		dbdconf.DbdPort:    "7000",
		dbdconf.DbdHost:    "",
	})
	require.NoError(t, err)

	lines := confLines(t, res.Path)
	assert.Contains(t, lines, "DebugLevel=debug5")
	assert.Contains(t, lines, "DbdPort=6819", "maintained value wins over the override")
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, "DbdHost="), "empty values are skipped")
	}
}

func TestRenderInvalidOverrideAborts(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	_, err := m.Render(map[dbdconf.Token]string{dbdconf.DebugLevel: "chatty"})
	require.Error(t, err)

	var verr *dbdconf.InvalidValueError
	assert.ErrorAs(t, err, &verr)
	_, statErr := os.Stat(m.cfg.ConfFile())
	assert.True(t, os.IsNotExist(statErr), "nothing may be written on invalid parameters")
}

func TestRenderMode(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	res, err := m.Render(nil)
	require.NoError(t, err)

	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRenderRecordsJournal(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	res, err := m.Render(nil)
	require.NoError(t, err)

	last, err := m.store.LastRender(res.Path)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, res.Checksum, last.Checksum)
	assert.Equal(t, res.Keys, last.KeyCount)

	sum, err := fsutil.Checksum(res.Path)
	require.NoError(t, err)
	assert.Equal(t, sum, last.Checksum)
}

func TestRestartAndVerifyAlreadyActive(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["slurmdbd.service"] = []string{"active"}
	m := newTestManager(t, sysd)
	sleeps := recordSleeps(m)

	require.NoError(t, m.RestartAndVerify(context.Background()))
	assert.Zero(t, sysd.restarts())
	assert.Empty(t, *sleeps)
}

func TestRestartAndVerifyRetries(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["slurmdbd.service"] = []string{"inactive", "failed", "active"}
	m := newTestManager(t, sysd)
	sleeps := recordSleeps(m)

	require.NoError(t, m.RestartAndVerify(context.Background()))
	assert.Equal(t, 2, sysd.restarts())
	assert.Equal(t, []time.Duration{3 * time.Second, 4 * time.Second}, *sleeps)
}

func TestRestartAndVerifyGivesUp(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["slurmdbd.service"] = []string{"inactive"}
	m := newTestManager(t, sysd)
	sleeps := recordSleeps(m)

	err := m.RestartAndVerify(context.Background())
	require.ErrorIs(t, err, ErrCannotStart)
	assert.Equal(t, 5, sysd.restarts())
	assert.Equal(t, []time.Duration{
		3 * time.Second, 4 * time.Second, 5 * time.Second, 6 * time.Second, 7 * time.Second,
	}, *sleeps)
}

func TestRenderAndRestart(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["slurmdbd.service"] = []string{"inactive", "active"}
	m := newTestManager(t, sysd)

	res, err := m.RenderAndRestart(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, res)

	require.GreaterOrEqual(t, len(sysd.actions), 2)
	assert.Equal(t, "stop slurmdbd.service", sysd.actions[0], "the unit is stopped before the rewrite")
	assert.Equal(t, "restart slurmdbd.service", sysd.actions[1])
	assert.FileExists(t, res.Path)
}

func TestRenderAndRestartStopFailure(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.stopErr = os.ErrPermission
	m := newTestManager(t, sysd)

	_, err := m.RenderAndRestart(context.Background(), nil)
	require.Error(t, err)
	_, statErr := os.Stat(m.cfg.ConfFile())
	assert.True(t, os.IsNotExist(statErr), "no render after a failed stop")
}

func TestConfigureDatabaseSocket(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	db, err := m.ConfigureDatabase("slurmdbd", "s3cret", "file:///run/mysql/mysql.sock")
	require.NoError(t, err)

	assert.Empty(t, db.Host)
	assert.Empty(t, db.Port)
	assert.Equal(t, params.DefaultDatabaseName, db.Name)

	data, err := os.ReadFile(m.cfg.DefaultsFile())
	require.NoError(t, err)
	assert.Contains(t, strings.Split(string(data), "\n"), `MYSQL_UNIX_PORT="/run/mysql/mysql.sock"`,
		"socket path lands quoted in the defaults file")
}

func TestConfigureDatabaseSocketPreferred(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	db, err := m.ConfigureDatabase("u", "p", "file:///run/a.sock,10.0.0.5:3306")
	require.NoError(t, err)
	assert.Empty(t, db.Host, "socket endpoints win over tcp")
}

func TestConfigureDatabaseTCP(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	require.NoError(t, os.WriteFile(m.cfg.DefaultsFile(), []byte("MYSQL_UNIX_PORT=\"/stale.sock\"\nOTHER=1\n"), 0o644))

	db, err := m.ConfigureDatabase("u", "p", "[2001:db8::5]:3306")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::5", db.Host)
	assert.Equal(t, "3306", db.Port)

	data, err := os.ReadFile(m.cfg.DefaultsFile())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "MYSQL_UNIX_PORT", "tcp endpoints clear the socket setting")
	assert.Contains(t, string(data), "OTHER=1")

	stored, err := m.Database()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "2001:db8::5", stored.Host)
}

func TestConfigureDatabaseNoEndpoints(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	_, err := m.ConfigureDatabase("u", "p", " , ,")
	require.ErrorIs(t, err, params.ErrNoEndpoints)
}

func TestDatabaseUnconfigured(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	db, err := m.Database()
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestSetDatabaseInvalid(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	err := m.SetDatabase(params.Database{Username: "u", Name: params.DefaultDatabaseName})
	require.Error(t, err)

	db, err := m.Database()
	require.NoError(t, err)
	assert.Nil(t, db, "invalid settings are not stored")
}

func TestWriteJWTKey(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	require.NoError(t, m.WriteJWTKey([]byte("jwt-signing-key")))

	path := m.cfg.JWTKeyFile()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jwt-signing-key", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteJWTKeyEnforcesMode(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	path := m.cfg.JWTKeyFile()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, m.WriteJWTKey([]byte("new")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "a pre-existing lax mode is tightened")
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCheckMunge(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["munge.service"] = []string{"active"}
	m := newTestManager(t, sysd)

	dir := t.TempDir()
	m.mungeBin = writeScript(t, dir, "munge", "echo 'MUNGE:AwQDAAA=:'\n")
	m.unmungeBin = writeScript(t, dir, "unmunge", "cat >/dev/null\necho 'STATUS:           Success (0)'\n")

	require.NoError(t, m.CheckMunge(context.Background()))
}

func TestCheckMungeInactiveUnit(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["munge.service"] = []string{"inactive"}
	m := newTestManager(t, sysd)

	err := m.CheckMunge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "munge.service is not active")
}

func TestCheckMungeBadCredential(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["munge.service"] = []string{"active"}
	m := newTestManager(t, sysd)

	dir := t.TempDir()
	m.mungeBin = writeScript(t, dir, "munge", "echo 'MUNGE:AwQDAAA=:'\n")
	m.unmungeBin = writeScript(t, dir, "unmunge", "cat >/dev/null\necho 'STATUS:           Rewound credential (16)'\n")

	err := m.CheckMunge(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "munge key is not properly configured")
}

func TestServiceWrappers(t *testing.T) {
	sysd := newFakeSystemd()
	sysd.states["slurmdbd.service"] = []string{"active"}
	m := newTestManager(t, sysd)
	ctx := context.Background()

	require.NoError(t, m.StartService(ctx))
	require.NoError(t, m.StopService(ctx))
	assert.Equal(t, []string{"start slurmdbd.service", "stop slurmdbd.service"}, sysd.actions)

	st, err := m.ServiceState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "active", st)
}

func TestConfSetAndValue(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	require.NoError(t, m.ConfSet("DebugLevel", "debug2"))

	v, ok, err := m.ConfValue("DebugLevel")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "debug2", v)

	_, ok, err = m.ConfValue("DbdHost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfSetInvalid(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	err := m.ConfSet("DebugLevel", "chatty")
	require.Error(t, err)

	err = m.ConfSet("NotAKey", "1")
	require.Error(t, err)
	var uerr *dbdconf.UnrecognizedKeyError
	assert.ErrorAs(t, err, &uerr)
}

func TestConfUnset(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	require.NoError(t, m.ConfSet("DbdHost", "dbd-0"))

	require.NoError(t, m.ConfUnset("DbdHost"))

	err := m.ConfUnset("DbdHost")
	require.Error(t, err)
	var nerr *dbdconf.KeyNotPresentError
	assert.ErrorAs(t, err, &nerr)
}

func TestConfEntriesKeepFileOrder(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	require.NoError(t, m.ConfSet("DbdHost", "dbd-0"))
	require.NoError(t, m.ConfSet("ArchiveJobs", "yes"))

	entries, err := m.ConfEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, dbdconf.DbdHost, entries[0].Key, "insertion order, not lexical")
	assert.Equal(t, dbdconf.ArchiveJobs, entries[1].Key)
}

func TestConfClear(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	require.NoError(t, m.ConfSet("DbdHost", "dbd-0"))

	require.NoError(t, m.ConfClear())

	entries, err := m.ConfEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfSetRefreshesBaseline(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())
	require.NoError(t, m.ConfSet("DbdHost", "dbd-0"))

	last, err := m.store.LastRender(m.cfg.ConfFile())
	require.NoError(t, err)
	require.NotNil(t, last)

	sum, err := fsutil.Checksum(m.cfg.ConfFile())
	require.NoError(t, err)
	assert.Equal(t, sum, last.Checksum, "journal tracks the file the tool just wrote")
	assert.Equal(t, 1, last.KeyCount)
}

func TestApplyEnvJournals(t *testing.T) {
	m := newTestManager(t, newFakeSystemd())

	require.NoError(t, m.ApplyEnv(map[string]*string{"slurm_acct_db_host": envfile.Value("db-0")}))

	data, err := os.ReadFile(m.cfg.DefaultsFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), "SLURM_ACCT_DB_HOST=db-0")

	last, err := m.store.LastRender(m.cfg.DefaultsFile())
	require.NoError(t, err)
	require.NotNil(t, last)

	sum, err := fsutil.Checksum(m.cfg.DefaultsFile())
	require.NoError(t, err)
	assert.Equal(t, sum, last.Checksum)
	assert.Equal(t, 1, last.KeyCount)
}
