package lock

import "errors"

// ErrLockTimeout is returned when a session lock cannot be acquired in time.
var ErrLockTimeout = errors.New("session lock acquisition timeout")
