package auth

import "errors"

// ErrMissingToken indicates a request without a bearer credential.
var ErrMissingToken = errors.New("bearer token missing")
