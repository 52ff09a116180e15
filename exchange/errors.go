package exchange

import (
	"errors"
	"fmt"
)

// ErrUnknownAsset reports a symbol the asset registry cannot resolve. The
// builder never falls back to a default index: a wrong index trades the
// wrong instrument. Not retryable until the registry refreshes.
var ErrUnknownAsset = errors.New("unknown asset")

// BuildError is a structural problem with a trading intent, named by the
// offending field. It is produced before anything is signed or transmitted.
type BuildError struct {
	Field  string
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(field, reason string) *BuildError {
	return &BuildError{Field: field, Reason: reason}
}

func buildWrap(field, reason string, err error) *BuildError {
	return &BuildError{Field: field, Reason: reason, Err: err}
}
