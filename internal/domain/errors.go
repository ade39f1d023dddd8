package domain

import "errors"

var (
	ErrStoreNotConfigured  = errors.New("story store not configured")
	ErrSubmitNotConfigured = errors.New("submission endpoint not configured")
	ErrNoPosition          = errors.New("location not available")
)
