package scheduler

import "errors"

// ErrInvalidWindow is returned for a malformed working-hours window
// (end not after start). This is an input-validation failure and is
// never retried.
var ErrInvalidWindow = errors.New("invalid working-hours window")
