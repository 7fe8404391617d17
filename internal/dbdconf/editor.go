package dbdconf

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"slurmdbdops/internal/fsutil"
)

// Editor loads, mutates, and persists one slurmdbd.conf file. Every
// editor is explicitly constructed with Open and owns its document; the
// file is guarded by an advisory lock on a sidecar .lock file for the
// editor's lifetime, so at most one editor writes a given path at a
// time. Release it with Close.
type Editor struct {
	path string
	doc  *document
	lock *os.File
	log  *slog.Logger
}

// Open returns an editor for the file at path. A missing file is
// created empty and the editor starts with an empty document; an
// existing file is loaded. Open fails if another editor holds the lock
// for path.
func Open(path string) (*Editor, error) {
	e := &Editor{
		path: path,
		doc:  newDocument(),
		log:  slog.Default(),
	}

	if err := e.acquireLock(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			e.releaseLock()
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		e.log.Debug("creating slurmdbd.conf", "path", path)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			e.releaseLock()
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		f.Close()
		return e, nil
	}

	if err := e.Load(); err != nil {
		e.releaseLock()
		return nil, err
	}
	return e, nil
}

// Close releases the advisory lock. The editor must not be used after
// Close.
func (e *Editor) Close() error {
	return e.releaseLock()
}

// Path returns the file path this editor operates on.
func (e *Editor) Path() string { return e.path }

func (e *Editor) acquireLock() error {
	lockPath := e.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("lock %s held by another editor: %w", e.path, err)
	}
	e.lock = f
	return nil
}

func (e *Editor) releaseLock() error {
	if e.lock == nil {
		return nil
	}
	err := unix.Flock(int(e.lock.Fd()), unix.LOCK_UN)
	if cerr := e.lock.Close(); err == nil {
		err = cerr
	}
	e.lock = nil
	return err
}

// Load reads and parses the file, replacing the in-memory document.
// Comment lines and blank lines are discarded; every other line must be
// Key=Value with a recognized key. Any bad line fails the whole load
// with a ParseError and the prior document is kept untouched. Duplicate
// keys: last occurrence wins.
func (e *Editor) Load() error {
	e.log.Debug("parsing slurmdbd.conf", "path", e.path)
	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", e.path, err)
	}

	doc := newDocument()
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return &ParseError{Path: e.path, Line: i + 1, Err: fmt.Errorf("missing '=' separator")}
		}
		tok, err := Lookup(line[:idx])
		if err != nil {
			return &ParseError{Path: e.path, Line: i + 1, Err: err}
		}
		doc.set(tok, line[idx+1:])
	}

	if doc.len() == 0 {
		e.log.Debug("parsed slurmdbd.conf is empty", "path", e.path)
	}
	e.doc = doc
	return nil
}

// Dump serializes the document back to the file: a three-line banner
// followed by one Key=Value line per entry in document order. The
// content is written to a temporary file in the same directory and
// atomically renamed over the target, so a crash never leaves a
// truncated file. An empty document is written anyway, with a warning.
func (e *Editor) Dump() error {
	if e.doc.len() == 0 {
		e.log.Warn("writing empty slurmdbd configuration", "path", e.path)
	}
	e.log.Debug("dumping slurmdbd.conf", "path", e.path)

	var b strings.Builder
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# %s generated at %s\n", e.path, time.Now().Format("2006-01-02 15:04:05.000000"))
	b.WriteString("#\n")
	for _, t := range e.doc.tokens() {
		v, _ := e.doc.get(t)
		fmt.Fprintf(&b, "%s=%s\n", t, v)
	}

	return fsutil.WriteAtomic(e.path, []byte(b.String()), 0o600)
}

// Clear discards the in-memory document. The file path is retained for
// a later Load or Dump.
func (e *Editor) Clear() {
	e.doc = newDocument()
}

// Len returns the number of keys currently set.
func (e *Editor) Len() int { return e.doc.len() }

// Has reports whether t is set.
func (e *Editor) Has(t Token) bool {
	_, ok := e.doc.get(t)
	return ok
}

// Tokens returns the set keys in document order.
func (e *Editor) Tokens() []Token { return e.doc.tokens() }

// Value returns the raw stored string for t.
func (e *Editor) Value(t Token) (string, bool) {
	return e.doc.get(t)
}

// Bool reads a yes/no key three ways: (true, true) for "yes",
// (false, true) for "no", and (false, false) when the key is absent or
// its raw value is not a recognized boolean literal.
func (e *Editor) Bool(t Token) (value, ok bool) {
	raw, present := e.doc.get(t)
	if !present {
		return false, false
	}
	switch raw {
	case "yes":
		return true, true
	case "no":
		return false, true
	}
	return false, false
}

// Int parses an integer key. ok reports presence; a present but
// non-numeric raw value yields an InvalidValueError.
func (e *Editor) Int(t Token) (value int, ok bool, err error) {
	raw, present := e.doc.get(t)
	if !present {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, &InvalidValueError{Key: t, Value: raw, Reason: fmt.Sprintf("not an integer: %s", raw)}
	}
	return n, true, nil
}

// List splits a list key on its separator. Only list-kind tokens
// return values; ok is false for other kinds.
func (e *Editor) List(t Token) ([]string, bool) {
	ks, err := specFor(t)
	if err != nil || ks.kind != KindList {
		return nil, false
	}
	raw, present := e.doc.get(t)
	if !present {
		return nil, false
	}
	return strings.Split(raw, ks.sep), true
}

// Pairs decodes a pair-list key. Elements without an '=' decode with an
// empty value.
func (e *Editor) Pairs(t Token) ([]Pair, bool) {
	ks, err := specFor(t)
	if err != nil || ks.kind != KindPairs {
		return nil, false
	}
	raw, present := e.doc.get(t)
	if !present {
		return nil, false
	}
	items := strings.Split(raw, ",")
	pairs := make([]Pair, 0, len(items))
	for _, item := range items {
		k, v, _ := strings.Cut(item, "=")
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs, true
}

// Set validates value against t's key spec and stores its canonical
// string form. Accepted value types follow the key kind: string always;
// bool for yes/no keys; int for integer keys; []string for list keys;
// []Pair for pair-list keys. On a validation failure the document is
// left unchanged.
func (e *Editor) Set(t Token, value any) error {
	raw, err := encodeValue(t, value)
	if err != nil {
		return err
	}
	return e.SetRaw(t, raw)
}

// SetRaw validates a canonical raw string against t's key spec and
// stores it, overwriting any prior value.
func (e *Editor) SetRaw(t Token, raw string) error {
	if err := validateRaw(t, raw); err != nil {
		return err
	}
	e.doc.set(t, raw)
	return nil
}

// Delete removes t from the document. Removal is strict: deleting an
// absent key returns a KeyNotPresentError.
func (e *Editor) Delete(t Token) error {
	return e.doc.delete(t)
}

// encodeValue converts a semantic value to the canonical on-disk string
// for t.
func encodeValue(t Token, value any) (string, error) {
	ks, err := specFor(t)
	if err != nil {
		return "", err
	}

	if s, ok := value.(string); ok {
		return s, nil
	}

	switch ks.kind {
	case KindBool:
		if b, ok := value.(bool); ok {
			if b {
				return "yes", nil
			}
			return "no", nil
		}
	case KindInt:
		switch n := value.(type) {
		case int:
			return strconv.Itoa(n), nil
		case int64:
			return strconv.FormatInt(n, 10), nil
		}
	case KindList:
		if items, ok := value.([]string); ok {
			return strings.Join(items, ks.sep), nil
		}
	case KindPairs:
		if pairs, ok := value.([]Pair); ok {
			items := make([]string, len(pairs))
			for i, p := range pairs {
				items[i] = p.Key + "=" + p.Value
			}
			return strings.Join(items, ","), nil
		}
	}
	return "", &InvalidValueError{
		Key:    t,
		Value:  fmt.Sprintf("%v", value),
		Reason: fmt.Sprintf("unsupported value type %T", value),
	}
}

