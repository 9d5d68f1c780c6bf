package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/query"
	"github.com/sqlagent/sqlagent/internal/session"
)

const (
	DefaultMaxReplyRows = 10
	EmptyMessageReply   = "Please send a question about the data."
	NoRowsReply         = "No results found."
	ResetReply          = "Conversation cleared."

	// ResetCommand clears the sender's conversation instead of running a query.
	ResetCommand = "reset"
)

// QueryTool is the execute_sql_query tool as seen by the runtime.
type QueryTool interface {
	ExecuteSQLQuery(ctx context.Context, text string) (query.Envelope, error)
}

type RuntimeConfig struct {
	Tool     QueryTool
	Sessions *session.Store
	// MaxReplyRows caps the rows rendered into one chat reply.
	MaxReplyRows int
	Logger       *slog.Logger
}

// Runtime answers chat messages by running them through the query tool and
// rendering the envelope as plain text.
type Runtime struct {
	tool     QueryTool
	sessions *session.Store
	maxRows  int
	logger   *slog.Logger
}

func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Tool == nil {
		return nil, fmt.Errorf("query tool is required")
	}
	maxRows := cfg.MaxReplyRows
	if maxRows <= 0 {
		maxRows = DefaultMaxReplyRows
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{tool: cfg.Tool, sessions: cfg.Sessions, maxRows: maxRows, logger: logger}, nil
}

// Reply runs text for sessionID and returns the chat reply. Tool failures
// are rendered into the reply; only a cancelled context is an error.
func (r *Runtime) Reply(ctx context.Context, sessionID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyMessageReply, nil
	}
	log := r.logger.With(slog.String("session_id", sessionID))
	if strings.EqualFold(text, ResetCommand) {
		if r.sessions != nil && sessionID != "" {
			r.sessions.Reset(sessionID)
		}
		return ResetReply, nil
	}

	ctx = nl2sql.WithHistory(ctx, r.history(log, sessionID))
	r.record(log, sessionID, session.RoleUser, text)

	envelope, err := r.tool.ExecuteSQLQuery(ctx, text)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		log.Error("query tool failed", slog.Any("error", err))
		if envelope.Message == "" {
			envelope = query.Envelope{Status: query.StatusError, Message: query.UnavailableMessage}
		}
	}

	reply := FormatEnvelope(envelope, r.maxRows)
	r.record(log, sessionID, session.RoleAssistant, reply)
	return reply, nil
}

func (r *Runtime) record(log *slog.Logger, sessionID string, role session.Role, text string) {
	if r.sessions == nil || sessionID == "" {
		return
	}
	if _, err := r.sessions.Append(sessionID, role, text); err != nil {
		log.Warn("failed to record session turn", slog.Any("error", err))
	}
}

// history returns the sender's earlier turns for the translator prompt.
func (r *Runtime) history(log *slog.Logger, sessionID string) []nl2sql.Turn {
	if r.sessions == nil || sessionID == "" {
		return nil
	}
	history, ok, err := r.sessions.Get(sessionID)
	if err != nil {
		log.Warn("failed to load session", slog.Any("error", err))
		return nil
	}
	if !ok {
		return nil
	}
	turns := make([]nl2sql.Turn, 0, len(history.Turns))
	for _, turn := range history.Turns {
		turns = append(turns, nl2sql.Turn{Role: string(turn.Role), Text: turn.Text})
	}
	return turns
}

// FormatEnvelope renders an envelope as a chat message. Error messages pass
// through unchanged. Rows are rendered as "column: value" lines sorted by
// column name, at most maxRows of them.
func FormatEnvelope(envelope query.Envelope, maxRows int) string {
	if !envelope.Success {
		return envelope.Message
	}
	if len(envelope.Data) == 0 {
		return NoRowsReply
	}

	shown := envelope.Data
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}

	var b strings.Builder
	if envelope.RowCount == 1 {
		b.WriteString("Found 1 row:")
	} else {
		fmt.Fprintf(&b, "Found %d rows:", envelope.RowCount)
	}
	for _, row := range shown {
		b.WriteString("\n")
		for _, column := range sortedColumns(row) {
			fmt.Fprintf(&b, "\n%s: %s", column, formatValue(row[column]))
		}
	}
	if hidden := len(envelope.Data) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "\n\n...and %d more.", hidden)
	}
	return b.String()
}

func sortedColumns(row map[string]any) []string {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
