package engine

import "errors"

// ErrPreflightFailed is returned when the pre-flight gate fails and the run
// aborts before touching the store.
var ErrPreflightFailed = errors.New("engine: pre-flight validation failed")

// ErrPostSyncFailed is returned when post-sync validation fails and the run's
// mutations are rolled back.
var ErrPostSyncFailed = errors.New("engine: post-sync validation failed")
