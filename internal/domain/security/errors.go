package security

import "errors"

var (
	ErrEvaluationNotFound = errors.New("security evaluation not found")
)
