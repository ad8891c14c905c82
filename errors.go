package koi

import (
	"fmt"
	"strings"
	"time"
)

// UnknownCommandError is returned when resolving a path that matches no registered command
type UnknownCommandError struct {
	scope string
	path  []string
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf(`unknown command: no command registered for %s in scope "%s"`, errPath(e.path), e.scope)
}

func (e UnknownCommandError) Path() []string {
	return e.path
}

// DuplicateCommandError is returned when registering a command whose (scope, path) is already taken
type DuplicateCommandError struct {
	scope string
	path  []string
}

func (e DuplicateCommandError) Error() string {
	return fmt.Sprintf(`duplicate command: %s already registered in scope "%s"`, errPath(e.path), e.scope)
}

// InvalidSchemaError is returned when a command or its options fail registration-time validation
type InvalidSchemaError struct {
	command string
	reason  string
}

func (e InvalidSchemaError) Error() string {
	return fmt.Sprintf(`invalid schema for "%s": %s`, e.command, e.reason)
}

// CheckFailedError is returned when a check denies an invocation,
// err holds the predicate's own fault if it raised one instead of returning false
type CheckFailedError struct {
	check string
	err   error
}

func (e CheckFailedError) Error() string {
	if e.err != nil {
		return fmt.Sprintf(`check "%s" faulted: %v`, e.check, e.err)
	}
	return fmt.Sprintf(`check "%s" denied the invocation`, e.check)
}

func (e CheckFailedError) Unwrap() error {
	return e.err
}

// Check returns the name of the failing check
func (e CheckFailedError) Check() string {
	return e.check
}

// MissingOptionError is returned when a required option has no value in the invocation
type MissingOptionError struct {
	command string
	option  string
}

func (e MissingOptionError) Error() string {
	return fmt.Sprintf(`missing option: required option "%s" absent on command "%s"`, e.option, e.command)
}

// InvalidOptionValueError is returned when a supplied value fails type, choice or bound validation
type InvalidOptionValueError struct {
	command string
	option  string
	value   interface{}
	reason  string
}

func (e InvalidOptionValueError) Error() string {
	return fmt.Sprintf(`invalid value for option "%s" on command "%s": %s (got %v)`, e.option, e.command, e.reason, e.value)
}

// UnknownOptionError is returned by autocomplete resolution when the focused
// option does not exist or is not autocomplete-eligible
type UnknownOptionError struct {
	command string
	option  string
}

func (e UnknownOptionError) Error() string {
	return fmt.Sprintf(`unknown option: "%s" on command "%s" does not exist or has no autocomplete`, e.option, e.command)
}

// TimeoutError is returned when a stage exceeds its time budget
type TimeoutError struct {
	stage  string
	budget time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s exceeded its %v budget", e.stage, e.budget)
}

// StaleInteractionError is returned when sending after the response window
// elapsed without a prior deferral
type StaleInteractionError struct {
	id string
}

func (e StaleInteractionError) Error() string {
	return fmt.Sprintf(`stale interaction "%s": response window elapsed without deferral`, e.id)
}

// AlreadyRespondedError is returned when sending a second initial response
type AlreadyRespondedError struct {
	id string
}

func (e AlreadyRespondedError) Error() string {
	return fmt.Sprintf(`already responded to interaction "%s"`, e.id)
}

// HandlerError wraps any fault raised by application handler code, including recovered panics
type HandlerError struct {
	path []string
	err  error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf(`error executing handler for %s: %v`, errPath(e.path), e.err)
}

func (e HandlerError) Unwrap() error {
	return e.err
}

func errPath(path []string) string {
	return "/" + strings.Join(path, " ")
}
