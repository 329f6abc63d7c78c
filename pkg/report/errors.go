package report

import (
	"errors"
	"fmt"
)

// Logon was answered with a status other than Ok
var ErrUnauthorized = errors.New("unauthorized")

// ExecuteReport was answered with a status other than Success
type ExecutionError struct {
	Status  string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("report execution failed: %s", e.Message)
}

// RetrieveReport was answered with status Failed
type RetrievalError struct {
	Message string
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to stream the report: %s", e.Message)
}
