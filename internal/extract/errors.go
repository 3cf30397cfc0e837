package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrService is a transport or service-level failure of one attempt
	ErrService = errors.New("generation service")

	// ErrParseRecovery means the response held no parseable JSON object
	ErrParseRecovery = errors.New("parse response")

	// ErrSchema means the object parsed but lacks its required field.
	// It wraps ErrParseRecovery.
	ErrSchema = fmt.Errorf("%w: schema", ErrParseRecovery)

	// ErrRetriesExhausted is returned once a unit has used all its attempts
	ErrRetriesExhausted = errors.New("retries exhausted")
)
