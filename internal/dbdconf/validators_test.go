package dbdconf

import (
	"errors"
	"testing"
)

func TestValidateRaw(t *testing.T) {
	cases := []struct {
		name string
		tok  Token
		raw  string
		ok   bool
	}{
		{"auth type munge", AuthType, "auth/munge", true},
		{"auth type other", AuthType, "auth/jwt", false},

		{"bool yes", TrackWCKey, "yes", true},
		{"bool no", ArchiveEvents, "no", true},
		{"bool true rejected", TrackWCKey, "true", false},
		{"bool capitalized rejected", TrackWCKey, "Yes", false},

		{"debug level info", DebugLevel, "info", true},
		{"debug level debug5", DebugLevelSyslog, "debug5", true},
		{"debug level bogus", DebugLevel, "chatty", false},

		{"log format iso8601", LogTimeFormat, "iso8601", true},
		{"log format rfc5424_ms", LogTimeFormat, "rfc5424_ms", true},
		{"log format bogus", LogTimeFormat, "unix", false},

		{"password plain", StoragePass, "s3cret", true},
		{"password with hash", StoragePass, "s3#cret", false},

		{"port one digit", DbdPort, "1", true},
		{"port five digits", DbdPort, "99999", true},
		{"port six digits", StoragePort, "123456", false},
		{"port non-numeric", DbdPort, "https", false},
		{"port negative", DbdPort, "-1", false},

		{"storage type mysql", StorageType, "accounting_storage/mysql", true},
		{"storage type postgres", StorageType, "accounting_storage/postgres", false},

		{"purge hours", PurgeJobAfter, "12hour", true},
		{"purge days", PurgeEventAfter, "1day", true},
		{"purge months", PurgeUsageAfter, "24month", true},
		{"purge bare number", PurgeJobAfter, "12", false},
		{"purge weeks", PurgeStepAfter, "2week", false},

		{"query range d-h:m:s", MaxQueryTimeRange, "60-0:0:0", true},
		{"query range d-h", MaxQueryTimeRange, "30-12", true},
		{"query range h:m:s", MaxQueryTimeRange, "720:0:0", true},
		{"query range m:s", MaxQueryTimeRange, "30:0", true},
		{"query range infinite", MaxQueryTimeRange, "INFINITE", true},
		{"query range lowercase infinite", MaxQueryTimeRange, "infinite", false},
		{"query range words", MaxQueryTimeRange, "forever", false},

		{"int plain", CommitDelay, "1", true},
		{"int negative", MessageTimeout, "-5", true},
		{"int garbage", TCPTimeout, "soon", false},

		{"unchecked string", ArchiveDir, "/tmp/archive", true},
		{"unchecked string empty", DefaultQOS, "", true},
	}

	for _, tc := range cases {
		err := validateRaw(tc.tok, tc.raw)
		if tc.ok && err != nil {
			t.Errorf("%s: validateRaw(%s, %q) failed: %v", tc.name, tc.tok, tc.raw, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: validateRaw(%s, %q) should fail", tc.name, tc.tok, tc.raw)
		}
	}
}

func TestValidateRawListElements(t *testing.T) {
	if err := validateRaw(DebugFlags, "DB_ARCHIVE,DB_JOB,FEDERATION"); err != nil {
		t.Errorf("valid flag list rejected: %v", err)
	}
	if err := validateRaw(DebugFlags, "DB_JOB,NETWORK"); err == nil {
		t.Error("flag list with one bad element should fail")
	}
	if err := validateRaw(PrivateData, "accounts,jobs,users"); err != nil {
		t.Errorf("valid private data list rejected: %v", err)
	}
	if err := validateRaw(PrivateData, "accounts,partitions"); err == nil {
		t.Error("private data list with one bad element should fail")
	}
}

func TestDebugFlagVocabulary(t *testing.T) {
	valid := []string{
		"DB_ARCHIVE", "DB_ASSOC", "DB_EVENT", "DB_JOB", "DB_QOS",
		"DB_QUERY", "DB_RESERVATION", "DB_RESOURCE", "DB_STEP",
		"DB_TRES", "DB_USAGE", "DB_WCKEY", "FEDERATION",
	}
	for _, flag := range valid {
		if err := checkDebugFlag(flag); err != nil {
			t.Errorf("flag %s rejected: %v", flag, err)
		}
	}
	if err := checkDebugFlag("db_job"); err == nil {
		t.Error("lowercase flag should be rejected")
	}
}

func TestPrivateDataVocabulary(t *testing.T) {
	valid := []string{"accounts", "events", "jobs", "reservations", "usage", "users"}
	for _, entry := range valid {
		if err := checkPrivateData(entry); err != nil {
			t.Errorf("entry %s rejected: %v", entry, err)
		}
	}
	if err := checkPrivateData("Accounts"); err == nil {
		t.Error("capitalized entry should be rejected")
	}
}

func TestValidateRawErrorType(t *testing.T) {
	err := validateRaw(DebugLevel, "chatty")
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var inv *InvalidValueError
	if !errors.As(err, &inv) {
		t.Fatalf("expected *InvalidValueError, got %T", err)
	}
	if inv.Key != DebugLevel {
		t.Errorf("expected key DebugLevel, got %s", inv.Key)
	}
	if inv.Value != "chatty" {
		t.Errorf("expected rejected value in error, got %q", inv.Value)
	}
	want := "invalid value for DebugLevel: not a valid debug level: chatty"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestValidateRawUnknownToken(t *testing.T) {
	err := validateRaw(Token("Fabricated"), "x")
	if err == nil {
		t.Fatal("expected failure for unknown token")
	}
	var unrec *UnrecognizedKeyError
	if !errors.As(err, &unrec) {
		t.Fatalf("expected *UnrecognizedKeyError, got %T", err)
	}
}
