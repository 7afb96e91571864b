package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrVSGroupFull        = errors.New("vs group already has 2 accounts")
	ErrFeatureDisabled    = errors.New("feature disabled")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAgentUnavailable   = errors.New("agent unavailable")
	ErrTimeout            = errors.New("request timed out")
)
