// Package envfile edits a shell-sourced environment defaults file, the
// kind read by a service manager before starting a daemon. Unlike the
// slurmdbd.conf editor, edits here are minimally invasive: comments and
// lines without an '=' survive verbatim, because the file is hand-edited
// and consumed by a shell loader rather than regenerated by this
// toolkit.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"slurmdbdops/internal/fsutil"
)

// Unset marks a key for removal in an Apply change set.
var Unset *string

// Value wraps s for use in an Apply change set.
func Value(s string) *string { return &s }

// Apply upserts and deletes KEY=VALUE declarations in the file at path.
// A nil change value unsets the key. Keys match case-insensitively
// against existing lines and are written upper-cased. Lines that are
// comments or carry no '=' are preserved verbatim, as are untouched
// declarations, in their original order. Keys with no existing line are
// appended at the end in sorted order; unsetting a key that has no line
// appends nothing. A missing file is treated as empty. The rewrite is
// atomic.
func Apply(path string, changes map[string]*string) error {
	wanted := make(map[string]*string, len(changes))
	for k, v := range changes {
		wanted[strings.ToLower(k)] = v
	}

	var lines []string
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		lines = splitLines(string(data))
	}

	var out []string
	processed := make(map[string]bool, len(wanted))

	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			out = append(out, line)
			continue
		}
		key, _, found := strings.Cut(line, "=")
		if !found {
			out = append(out, line)
			continue
		}
		name := strings.ToLower(key)
		value, requested := wanted[name]
		if !requested {
			out = append(out, line)
			continue
		}
		processed[name] = true
		if value == nil {
			// Unset: drop the line.
			continue
		}
		out = append(out, strings.ToUpper(name)+"="+*value)
	}

	// Append requested keys that matched no existing line, sorted for a
	// deterministic file. Unsets of nonexistent keys add nothing.
	names := make([]string, 0, len(wanted))
	for name := range wanted {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if processed[name] || wanted[name] == nil {
			continue
		}
		out = append(out, strings.ToUpper(name)+"="+*wanted[name])
	}

	var b strings.Builder
	for _, line := range out {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return fsutil.WriteAtomic(path, []byte(b.String()), 0o644)
}

// splitLines breaks content into lines without their terminators. A
// trailing newline does not produce a final empty line.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
