package generator

import "errors"

// ErrNotImplemented is returned by Funcs for an operation with no function set.
var ErrNotImplemented = errors.New("generator: operation not implemented")
