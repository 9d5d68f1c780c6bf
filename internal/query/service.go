package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sqlagent/sqlagent/internal/catalog"
	"github.com/sqlagent/sqlagent/internal/database"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/nlq"
	"github.com/sqlagent/sqlagent/internal/observability"
)

var writeVerbs = []string{"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER"}

// ArchiveRecord is one successful execution handed to an Archiver.
type ArchiveRecord struct {
	TraceID    string
	SQL        string
	Rows       []map[string]any
	ExecutedAt time.Time
}

type Archiver interface {
	Archive(ctx context.Context, record ArchiveRecord) error
}

type ServiceConfig struct {
	Connector   database.Connector
	Engine      Engine
	Planner     *nlq.Planner
	SchemaCache *catalog.Cache
	Archiver    Archiver
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Service is the execute_sql_query tool: it plans free text, enforces the
// read-only contract, executes and serializes. Every call uses its own
// connection and closes it before returning.
type Service struct {
	connector database.Connector
	engine    Engine
	planner   *nlq.Planner
	cache     *catalog.Cache
	archiver  Archiver
	timeout   time.Duration
	logger    *slog.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Connector == nil {
		return nil, fmt.Errorf("database connector is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("query engine is required")
	}
	if cfg.Planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		connector: cfg.Connector,
		engine:    cfg.Engine,
		planner:   cfg.Planner,
		cache:     cfg.SchemaCache,
		archiver:  cfg.Archiver,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// ExecuteSQLQuery runs text, which is either SQL or a natural language
// request. The returned error is non-nil only for connection failures; every
// other failure is reported through the envelope.
func (s *Service) ExecuteSQLQuery(ctx context.Context, text string) (Envelope, error) {
	ctx, traceID := observability.EnsureTraceID(ctx)
	start := time.Now()
	log := s.logger.With(slog.String("trace_id", traceID))

	conn, err := s.connector.Conn(ctx)
	if err != nil {
		log.Error("database connection failed", slog.Any("error", err))
		observability.ObserveQueryExecution("connection_error", 0, time.Since(start))
		return errorEnvelope(UnavailableMessage), err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Warn("failed to close connection", slog.Any("error", closeErr))
		}
	}()

	text = strings.TrimSpace(text)
	request := Request{SQL: text, ReadOnlyTx: s.connector.Dialect().ReadOnlyTx()}

	if !hasSelectPrefix(text) {
		if verb, ok := writeVerb(text); ok {
			refusal := &UnsupportedOperationError{Verb: verb}
			log.Info("refused write statement", slog.Any("error", refusal))
			observability.ObserveQueryExecution("refused", 0, time.Since(start))
			return errorEnvelope(WriteRefusalMessage), nil
		}

		plan, err := s.planner.Plan(ctx, text, s.env(conn))
		if err != nil {
			log.Error("query planning failed", slog.Any("error", err), slog.String("request", text))
			observability.ObserveQueryExecution("error", 0, time.Since(start))
			return errorEnvelope(GenericErrorMessage), nil
		}
		if plan.Empty() {
			log.Info("no statement could be built", slog.String("request", text), slog.String("kind", string(plan.Kind)))
			observability.ObserveQueryExecution("error", 0, time.Since(start))
			return errorEnvelope(GenericErrorMessage), nil
		}
		log.Debug("planned statement", slog.String("sql", plan.SQL), slog.String("source", string(plan.Source)))
		request.SQL = plan.SQL
		request.Args = plan.Args
	}

	if !hasSelectPrefix(request.SQL) {
		refusal := &UnsupportedOperationError{}
		log.Info("refused non-select statement", slog.Any("error", refusal), slog.String("sql", request.SQL))
		observability.ObserveQueryExecution("refused", 0, time.Since(start))
		return errorEnvelope(NonSelectMessage), nil
	}

	execCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.engine.Execute(execCtx, conn, request)
	if err != nil {
		var execErr *ExecutionError
		if !errors.As(err, &execErr) {
			execErr = &ExecutionError{SQL: request.SQL, Err: err}
		}
		log.Error("query execution failed", slog.Any("error", execErr.Err), slog.String("sql", execErr.SQL))
		observability.ObserveQueryExecution("error", 0, time.Since(start))
		return errorEnvelope(GenericErrorMessage), nil
	}

	envelope := successEnvelope(SerializeRows(s.connector.Dialect(), result))
	observability.ObserveQueryExecution("success", envelope.RowCount, time.Since(start))
	if result.Truncated {
		log.Warn("result truncated", slog.Int("rows", envelope.RowCount))
	}

	if s.archiver != nil {
		record := ArchiveRecord{TraceID: traceID, SQL: request.SQL, Rows: envelope.Data, ExecutedAt: start.UTC()}
		if err := s.archiver.Archive(ctx, record); err != nil {
			log.Warn("failed to archive query result", slog.Any("error", err))
		}
	}
	return envelope, nil
}

// Translate runs only the model translation for prompt.
func (s *Service) Translate(ctx context.Context, prompt string) (nl2sql.Result, error) {
	conn, err := s.connector.Conn(ctx)
	if err != nil {
		return nl2sql.Result{}, err
	}
	defer func() { _ = conn.Close() }()
	return s.planner.Translate(ctx, prompt, s.env(conn))
}

// Schema returns the structured catalog.
func (s *Service) Schema(ctx context.Context) (catalog.Snapshot, error) {
	conn, err := s.connector.Conn(ctx)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	defer func() { _ = conn.Close() }()
	return catalog.LoadSnapshot(ctx, s.env(conn).Catalog)
}

// InvalidateSchema drops cached catalog entries. It reports whether a cache
// is configured.
func (s *Service) InvalidateSchema() bool {
	if s.cache == nil {
		return false
	}
	s.cache.Invalidate()
	return true
}

func (s *Service) env(conn database.Conn) nlq.Env {
	d := s.connector.Dialect()
	introspector := catalog.NewIntrospector(conn, d)
	return nlq.Env{
		Dialect: d,
		Catalog: s.cache.Wrap(introspector),
		Sampler: introspector,
	}
}

func hasSelectPrefix(text string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "SELECT")
}

func writeVerb(text string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, verb := range writeVerbs {
		if strings.HasPrefix(upper, verb) {
			return verb, true
		}
	}
	return "", false
}
