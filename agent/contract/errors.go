package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrUnknownTool     = errors.New("unknown tool")
	ErrMissingArgument = errors.New("missing required argument")
	ErrTurnLimit       = errors.New("model turn limit exceeded")
	ErrValidation      = errors.New("validation failed")
)
