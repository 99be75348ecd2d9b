// Package faults defines the failure taxonomy shared by every videotools
// component.
//
// Errors are tagged with one of four sentinel markers so callers can decide
// how far a failure propagates without string matching: validation and
// configuration failures abort a single batch item, execution failures are
// reported with the encoder's exit code, and environment failures abort the
// whole batch. Typed errors in other packages (sequence.ValidationError,
// encoding.ConfigError, jobrun.ExitError, deps.EnvironmentError) implement Is
// so errors.Is works against these markers.
package faults
