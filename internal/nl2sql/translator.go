package nl2sql

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no translator is configured.
var ErrUnavailable = errors.New("nl2sql translator is not configured")

type Request struct {
	NaturalLanguage string `json:"natural_language"`
	// SchemaInfo is the rendered catalog description handed to the model.
	SchemaInfo string `json:"schema_info"`
	// Dialect selects the dialect specific prompt rules ("postgres" or "mssql").
	Dialect string `json:"dialect"`
	// History holds earlier turns of the same conversation, oldest first.
	History []Turn `json:"history,omitempty"`
}

// Turn is one prior message of a conversation. Role is "user" or "assistant".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type historyKey struct{}

// WithHistory attaches prior conversation turns to ctx for the translator.
func WithHistory(ctx context.Context, turns []Turn) context.Context {
	if len(turns) == 0 {
		return ctx
	}
	return context.WithValue(ctx, historyKey{}, turns)
}

func HistoryFromContext(ctx context.Context) []Turn {
	turns, _ := ctx.Value(historyKey{}).([]Turn)
	return turns
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
