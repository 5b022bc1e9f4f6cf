package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidVoteTarget  = errors.New("invalid vote target")
	ErrConflict           = errors.New("conflict")
	ErrNotEligible        = errors.New("not eligible")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
