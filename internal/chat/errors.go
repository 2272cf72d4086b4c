package chat

import "errors"

// ErrValidation means a user action was rejected client-side before any
// network call; no state was mutated.
var ErrValidation = errors.New("validation failed")

// ErrNotStarted means the session's live listener was used before Start.
var ErrNotStarted = errors.New("session not started")
