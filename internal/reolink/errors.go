package reolink

import (
	"errors"
	"fmt"
)

// ErrNotConnected means a refresh was attempted before a successful login.
var ErrNotConnected = errors.New("reolink: not connected")

// APIError describes a non-zero response code returned for one command.
type APIError struct {
	Cmd     string
	RspCode int
	Detail  string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	return fmt.Sprintf("reolink command %s failed: rspCode=%d detail=%q", e.Cmd, e.RspCode, e.Detail)
}

// loginErrorCodes are rspCodes that invalidate the current session token.
var loginErrorCodes = map[int]struct{}{
	-6: {}, // login required
	-7: {}, // login failed
}

// IsAuthError reports whether err indicates an expired or rejected session.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := loginErrorCodes[apiErr.RspCode]
	return ok
}
