package dbdconf

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation predicates for the key families that carry them. Each is a
// pure function over the canonical string form; list-valued keys run
// their predicate per element.

var (
	// portPattern constrains digit count only. The numeric range
	// 1-65535 is deliberately not enforced; see DESIGN.md.
	portPattern = regexp.MustCompile(`^\d{1,5}$`)

	// purgePattern matches slurmdbd purge durations such as "12hour",
	// "1day", "3month".
	purgePattern = regexp.MustCompile(`^\d+(hour|day|month)$`)

	// queryRangePattern matches the MaxQueryTimeRange grammars:
	// days-hours:minutes:seconds, days-hours, hours:minutes:seconds,
	// minutes:seconds, or the literal INFINITE.
	queryRangePattern = regexp.MustCompile(`^(\d+-\d+:\d+:\d+|\d+-\d+|\d+:\d+:\d+|\d+:\d+|INFINITE)$`)
)

func checkAuthType(v string) error {
	if v != "auth/munge" {
		return fmt.Errorf("not a valid auth type: %s", v)
	}
	return nil
}

func checkBool(v string) error {
	switch v {
	case "yes", "no":
		return nil
	}
	return fmt.Errorf("not a valid boolean value: %s", v)
}

func checkDebugFlag(v string) error {
	switch v {
	case "DB_ARCHIVE", "DB_ASSOC", "DB_EVENT", "DB_JOB", "DB_QOS",
		"DB_QUERY", "DB_RESERVATION", "DB_RESOURCE", "DB_STEP",
		"DB_TRES", "DB_USAGE", "DB_WCKEY", "FEDERATION":
		return nil
	}
	return fmt.Errorf("not a valid debug flag: %s", v)
}

func checkDebugLevel(v string) error {
	switch v {
	case "quiet", "fatal", "error", "info", "verbose",
		"debug", "debug2", "debug3", "debug4", "debug5":
		return nil
	}
	return fmt.Errorf("not a valid debug level: %s", v)
}

func checkLogTimeFormat(v string) error {
	switch v {
	case "iso8601", "iso8601_ms", "rfc5424", "rfc5424_ms", "clock", "short":
		return nil
	}
	return fmt.Errorf("not a valid log time format: %s", v)
}

// checkPassword rejects values containing the comment marker, which
// would corrupt the file on a later load.
func checkPassword(v string) error {
	if strings.Contains(v, "#") {
		return fmt.Errorf("password cannot contain '#'")
	}
	return nil
}

func checkPort(v string) error {
	if !portPattern.MatchString(v) {
		return fmt.Errorf("not a valid port number: %s", v)
	}
	return nil
}

func checkPrivateData(v string) error {
	switch v {
	case "accounts", "events", "jobs", "reservations", "usage", "users":
		return nil
	}
	return fmt.Errorf("not a valid private data entry: %s", v)
}

func checkStorageType(v string) error {
	if v != "accounting_storage/mysql" {
		return fmt.Errorf("not a valid storage type: %s", v)
	}
	return nil
}

func checkPurgeDuration(v string) error {
	if !purgePattern.MatchString(v) {
		return fmt.Errorf("not a valid time format: %s", v)
	}
	return nil
}

func checkQueryRange(v string) error {
	if !queryRangePattern.MatchString(v) {
		return fmt.Errorf("not a valid max query time format: %s", v)
	}
	return nil
}

// ValidateRaw checks a canonical raw string against t's key spec
// without storing it. Callers assembling a parameter set use it to
// reject bad values before any file is opened.
func ValidateRaw(t Token, raw string) error {
	return validateRaw(t, raw)
}

// validateRaw runs t's validator against a canonical raw string, per
// element for list kinds that validate elements. Int kinds additionally
// require a decimal integer so that stored values stay canonical.
func validateRaw(t Token, raw string) error {
	ks, err := specFor(t)
	if err != nil {
		return err
	}
	if ks.kind == KindInt {
		if !integerPattern.MatchString(raw) {
			return &InvalidValueError{Key: t, Value: raw, Reason: fmt.Sprintf("not an integer: %s", raw)}
		}
	}
	if ks.check == nil {
		return nil
	}
	if ks.perItem {
		for _, item := range strings.Split(raw, ks.sep) {
			if err := ks.check(item); err != nil {
				return &InvalidValueError{Key: t, Value: raw, Reason: err.Error()}
			}
		}
		return nil
	}
	if err := ks.check(raw); err != nil {
		return &InvalidValueError{Key: t, Value: raw, Reason: err.Error()}
	}
	return nil
}

var integerPattern = regexp.MustCompile(`^-?\d+$`)
