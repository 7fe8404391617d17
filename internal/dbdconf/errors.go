package dbdconf

import "fmt"

// UnrecognizedKeyError reports a key name outside the closed vocabulary
// of recognized slurmdbd.conf options.
type UnrecognizedKeyError struct {
	Name string
}

func (e *UnrecognizedKeyError) Error() string {
	return fmt.Sprintf("unrecognized slurmdbd configuration option: %s", e.Name)
}

// ParseError reports a line that could not be parsed while loading a
// configuration file. It wraps the underlying cause, typically an
// *UnrecognizedKeyError. A ParseError aborts the whole load: the
// document keeps its pre-load contents.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidValueError reports a value rejected by a key's validator. The
// document is never mutated when one of these is returned.
type InvalidValueError struct {
	Key    Token
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Key, e.Reason)
}

// KeyNotPresentError reports a delete of a key that is not set. Removal
// is strict; callers wanting unset-if-present semantics check Has first.
type KeyNotPresentError struct {
	Key Token
}

func (e *KeyNotPresentError) Error() string {
	return fmt.Sprintf("configuration key %s is not set", e.Key)
}
