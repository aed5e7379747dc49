// Package config provides property-based tests for configuration fallback functionality.
// These tests verify universal properties that should hold across all valid inputs.
package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_InvalidCollectorValuesFallBackToDefaults tests that invalid collector
// settings fall back to defaults.
//
// Property: For any invalid collector value (negative retries, zero delay, etc.),
// the system SHALL use the default value, ensuring collection remains operational.
func TestProperty_InvalidCollectorValuesFallBackToDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)
	defaults := DefaultCollectorConfig()

	properties.Property("negative max retries fall back to default", prop.ForAll(
		func(negative int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: defaults.FetchDelayDays,
					MaxRetries:     negative,
					RetryDelaySec:  defaults.RetryDelaySec,
					RequestTimeout: defaults.RequestTimeout,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Collector.MaxRetries == defaults.MaxRetries
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("negative retry delay falls back to default", prop.ForAll(
		func(negative int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: defaults.FetchDelayDays,
					MaxRetries:     defaults.MaxRetries,
					RetryDelaySec:  negative,
					RequestTimeout: defaults.RequestTimeout,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Collector.RetryDelaySec == defaults.RetryDelaySec
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("negative request timeout falls back to default", prop.ForAll(
		func(negative int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: defaults.FetchDelayDays,
					MaxRetries:     defaults.MaxRetries,
					RetryDelaySec:  defaults.RetryDelaySec,
					RequestTimeout: negative,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Collector.RequestTimeout == defaults.RequestTimeout
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("negative fetch delay falls back to default", prop.ForAll(
		func(negative int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: negative,
					MaxRetries:     defaults.MaxRetries,
					RetryDelaySec:  defaults.RetryDelaySec,
					RequestTimeout: defaults.RequestTimeout,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Collector.FetchDelayDays == defaults.FetchDelayDays
		},
		gen.IntRange(-1000, -1),
	))

	// Zero fetch delay is valid: it means "collect for today".
	properties.Property("zero fetch delay is valid and preserved", prop.ForAll(
		func(_ int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: 0,
					MaxRetries:     defaults.MaxRetries,
					RetryDelaySec:  defaults.RetryDelaySec,
					RequestTimeout: defaults.RequestTimeout,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Collector.FetchDelayDays == 0
		},
		gen.Const(0),
	))

	properties.TestingRun(t)
}

// TestProperty_ValidCollectorValuesArePreserved tests that valid configuration
// values are not overwritten.
//
// Property: For any valid configuration value, the system SHALL preserve the value
// and NOT overwrite it with the default.
func TestProperty_ValidCollectorValuesArePreserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("valid collector values are preserved", prop.ForAll(
		func(delayDays, retries, delaySec, timeoutSec int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: delayDays,
					MaxRetries:     retries,
					RetryDelaySec:  delaySec,
					RequestTimeout: timeoutSec,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Collector.FetchDelayDays == delayDays &&
				cfg.Collector.MaxRetries == retries &&
				cfg.Collector.RetryDelaySec == delaySec &&
				cfg.Collector.RequestTimeout == timeoutSec
		},
		gen.IntRange(0, 14),   // fetch delay days
		gen.IntRange(1, 10),   // max retries
		gen.IntRange(1, 300),  // retry delay seconds
		gen.IntRange(1, 3600), // request timeout seconds
	))

	properties.Property("valid scheduler values are preserved", prop.ForAll(
		func(ttlSec, timeoutMin int) bool {
			cfg := &Config{
				Scheduler: SchedulerConfig{
					LockKey:        "custom:lock",
					LockTTLSec:     ttlSec,
					DefaultTimeout: timeoutMin,
				},
			}

			validateAndApplyDefaults(cfg)

			return cfg.Scheduler.LockKey == "custom:lock" &&
				cfg.Scheduler.LockTTLSec == ttlSec &&
				cfg.Scheduler.DefaultTimeout == timeoutMin
		},
		gen.IntRange(1, 600), // lock TTL seconds
		gen.IntRange(1, 720), // default timeout minutes
	))

	properties.TestingRun(t)
}

// TestProperty_ValidationIsIdempotent tests that validation is idempotent.
//
// Property: Applying validateAndApplyDefaults twice to the same config SHALL
// produce the same result as applying it once.
func TestProperty_ValidationIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("validation is idempotent", prop.ForAll(
		func(delayDays, retries, delaySec, timeoutSec, ttlSec int) bool {
			cfg := &Config{
				Collector: CollectorConfig{
					FetchDelayDays: delayDays,
					MaxRetries:     retries,
					RetryDelaySec:  delaySec,
					RequestTimeout: timeoutSec,
				},
				Scheduler: SchedulerConfig{
					LockTTLSec: ttlSec,
				},
			}

			validateAndApplyDefaults(cfg)
			first := *cfg

			validateAndApplyDefaults(cfg)

			return cfg.Collector == first.Collector && cfg.Scheduler == first.Scheduler
		},
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
	))

	properties.TestingRun(t)
}

// TestProperty_DefaultFunctionsReturnValidValues tests that default functions
// return values that pass their own validation.
func TestProperty_DefaultFunctionsReturnValidValues(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("DefaultCollectorConfig returns valid values", prop.ForAll(
		func(_ int) bool {
			defaults := DefaultCollectorConfig()

			return defaults.FetchDelayDays >= 0 &&
				defaults.MaxRetries > 0 &&
				defaults.RetryDelaySec > 0 &&
				defaults.RequestTimeout > 0
		},
		gen.Const(0),
	))

	properties.Property("DefaultSchedulerConfig returns valid values", prop.ForAll(
		func(_ int) bool {
			defaults := DefaultSchedulerConfig()

			return defaults.LockKey != "" &&
				defaults.LockTTLSec > 0 &&
				defaults.DefaultTimeout > 0
		},
		gen.Const(0),
	))

	properties.TestingRun(t)
}
