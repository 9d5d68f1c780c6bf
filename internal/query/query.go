package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sqlagent/sqlagent/internal/database"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// User facing messages. Internal error details never reach the envelope.
const (
	WriteRefusalMessage = "I am only able to fetch data (SELECT queries) and cannot perform operations that modify, delete, or create data (such as INSERT, UPDATE, DELETE, CREATE, DROP, or ALTER queries). Please rephrase your query to ask for information only."
	NonSelectMessage    = "I am only able to fetch data (SELECT queries) and cannot perform operations that modify, delete, or create data. Please rephrase your query to ask for information only."
	GenericErrorMessage = "I couldn't process that query. Could you please rephrase it?"
	UnavailableMessage  = "The database is currently unavailable. Please try again later."
)

var ErrUnsupportedOperation = errors.New("unsupported operation")

// UnsupportedOperationError is a refused write statement.
type UnsupportedOperationError struct {
	Verb string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Verb == "" {
		return "unsupported operation: only SELECT statements are allowed"
	}
	return fmt.Sprintf("unsupported operation: %s statements are not allowed", e.Verb)
}

func (e *UnsupportedOperationError) Unwrap() error {
	return ErrUnsupportedOperation
}

// ExecutionError is a runtime failure of a read statement.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

type Request struct {
	SQL  string
	Args []any
	// ReadOnlyTx runs the statement inside a read-only transaction that is
	// always rolled back.
	ReadOnlyTx bool
}

type Result struct {
	Columns     []string
	ColumnTypes []string
	Rows        [][]any
	Truncated   bool
	Duration    time.Duration
}

type Engine interface {
	Execute(ctx context.Context, conn database.Conn, request Request) (Result, error)
}

// Envelope is the result of one tool call.
type Envelope struct {
	Status   string
	Success  bool
	Data     []map[string]any
	RowCount int
	Message  string
}

func successEnvelope(data []map[string]any) Envelope {
	if data == nil {
		data = []map[string]any{}
	}
	return Envelope{Status: StatusSuccess, Success: true, Data: data, RowCount: len(data)}
}

func errorEnvelope(message string) Envelope {
	return Envelope{Status: StatusError, Success: false, Message: message}
}

// MarshalJSON emits {status, success, data, row_count} on success and
// {status, success, message} otherwise.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Success {
		data := e.Data
		if data == nil {
			data = []map[string]any{}
		}
		return json.Marshal(struct {
			Status   string           `json:"status"`
			Success  bool             `json:"success"`
			Data     []map[string]any `json:"data"`
			RowCount int              `json:"row_count"`
		}{e.Status, true, data, e.RowCount})
	}
	return json.Marshal(struct {
		Status  string `json:"status"`
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{e.Status, false, e.Message})
}

func (e *Envelope) UnmarshalJSON(raw []byte) error {
	var decoded struct {
		Status   string           `json:"status"`
		Success  bool             `json:"success"`
		Data     []map[string]any `json:"data"`
		RowCount int              `json:"row_count"`
		Message  string           `json:"message"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*e = Envelope{
		Status:   decoded.Status,
		Success:  decoded.Success || decoded.Status == StatusSuccess,
		Data:     decoded.Data,
		RowCount: decoded.RowCount,
		Message:  decoded.Message,
	}
	return nil
}
