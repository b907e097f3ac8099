package model

import "errors"

// Sentinel errors for the service layer. Handlers translate these to
// transport status codes via errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)
