package domain

import "errors"

var (
	ErrEmptyPolicyName      = errors.New("policy name must not be empty")
	ErrInvalidMaxRequests   = errors.New("policy max requests must be > 0")
	ErrInvalidWindow        = errors.New("policy window must be > 0")
	ErrInvalidBlockDuration = errors.New("policy block duration must be >= 0")
	ErrDuplicatePolicy      = errors.New("policy already registered")
)
