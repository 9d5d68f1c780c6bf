package nlq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sqlagent/sqlagent/internal/catalog"
	"github.com/sqlagent/sqlagent/internal/dialect"
	"github.com/sqlagent/sqlagent/internal/nl2sql"
	"github.com/sqlagent/sqlagent/internal/observability"
)

type Mode string

const (
	ModeHeuristic Mode = "heuristic"
	ModeLLM       Mode = "llm"
	ModeAuto      Mode = "auto"
)

// PlanSource names the path that produced a plan.
type PlanSource string

const (
	SourceHeuristic PlanSource = "heuristic"
	SourceSmart     PlanSource = "smart"
	SourceLLM       PlanSource = "llm"
	SourceVerbatim  PlanSource = "verbatim"
)

type Plan struct {
	SQL    string     `json:"sql"`
	Args   []any      `json:"args,omitempty"`
	Kind   Kind       `json:"kind"`
	Tables []string   `json:"tables"`
	Source PlanSource `json:"source"`
}

func (p Plan) Empty() bool {
	return strings.TrimSpace(p.SQL) == ""
}

type PlannerConfig struct {
	Mode            Mode
	RestrictOrderBy bool
	SearchColumn    string
	// SampleData adds one sample row per table to the schema text sent to the
	// translator.
	SampleData bool
}

// Env is the request scoped catalog view a plan is built against.
type Env struct {
	Dialect dialect.Dialect
	Catalog catalog.Source
	Sampler catalog.Sampler
}

type Planner struct {
	cfg        PlannerConfig
	translator nl2sql.Translator
	logger     *slog.Logger
}

func NewPlanner(cfg PlannerConfig, translator nl2sql.Translator, logger *slog.Logger) (*Planner, error) {
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeAuto
	case ModeHeuristic, ModeAuto:
	case ModeLLM:
		if translator == nil {
			return nil, fmt.Errorf("planner mode %q requires a translator", cfg.Mode)
		}
	default:
		return nil, fmt.Errorf("unsupported planner mode %q", cfg.Mode)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{cfg: cfg, translator: translator, logger: logger}, nil
}

func (p *Planner) Mode() Mode {
	return p.cfg.Mode
}

// Plan turns text into a statement. SELECT text passes through verbatim.
// In auto mode a configured translator is tried first and the heuristic
// assembler answers when it fails or returns nothing.
func (p *Planner) Plan(ctx context.Context, text string, env Env) (Plan, error) {
	if StatementKind(text) == KindSelect {
		plan := Plan{SQL: strings.TrimSpace(text), Kind: KindSelect, Tables: []string{}, Source: SourceVerbatim}
		observability.IncrementPlanSource(string(plan.Source))
		return plan, nil
	}

	switch {
	case p.cfg.Mode == ModeLLM:
		return p.translatePlan(ctx, text, env)
	case p.cfg.Mode == ModeAuto && p.translator != nil:
		plan, err := p.translatePlan(ctx, text, env)
		if err == nil && !plan.Empty() {
			return plan, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Plan{}, ctxErr
		}
		if err != nil {
			p.logger.WarnContext(ctx, "translator failed, using heuristic plan", slog.Any("error", err))
		} else {
			p.logger.DebugContext(ctx, "translator returned no statement, using heuristic plan")
		}
	}

	plan, err := p.heuristicPlan(ctx, text, env)
	if err != nil {
		return Plan{}, err
	}
	if !plan.Empty() {
		observability.IncrementPlanSource(string(plan.Source))
	}
	return plan, nil
}

// Translate runs only the model path and returns its raw result.
func (p *Planner) Translate(ctx context.Context, text string, env Env) (nl2sql.Result, error) {
	if p.translator == nil {
		return nl2sql.Result{}, nl2sql.ErrUnavailable
	}
	var sampler catalog.Sampler
	if p.cfg.SampleData {
		sampler = env.Sampler
	}
	schemaInfo, err := catalog.RenderSchemaInfo(ctx, env.Catalog, sampler)
	if err != nil {
		return nl2sql.Result{}, err
	}
	return p.translator.Translate(ctx, nl2sql.Request{
		NaturalLanguage: text,
		SchemaInfo:      schemaInfo,
		Dialect:         env.Dialect.Name(),
		History:         nl2sql.HistoryFromContext(ctx),
	})
}

func (p *Planner) translatePlan(ctx context.Context, text string, env Env) (Plan, error) {
	result, err := p.Translate(ctx, text, env)
	if err != nil {
		return Plan{}, fmt.Errorf("translate request: %w", err)
	}
	plan := Plan{
		SQL:    strings.TrimSpace(result.SQL),
		Kind:   StatementKind(result.SQL),
		Tables: []string{},
		Source: SourceLLM,
	}
	if !plan.Empty() {
		observability.IncrementPlanSource(string(plan.Source))
	}
	return plan, nil
}

func (p *Planner) heuristicPlan(ctx context.Context, text string, env Env) (Plan, error) {
	tables, err := env.Catalog.ListTables(ctx)
	if err != nil {
		return Plan{}, err
	}
	constraints, err := env.Catalog.TableConstraints(ctx)
	if err != nil {
		return Plan{}, err
	}
	asm := Assembler{
		Dialect:         env.Dialect,
		Schema:          env.Catalog.TableSchema,
		Constraints:     constraints,
		RestrictOrderBy: p.cfg.RestrictOrderBy,
		SearchColumn:    p.cfg.SearchColumn,
	}

	if DetectKind(text) == KindSelect {
		intent := ExtractIntent(text, tables)
		if len(intent.SearchTerms) > 0 && containsTable(intent.Tables, asm.searchTable()) {
			stmt, err := asm.AssembleSmart(ctx, intent, catalog.BuildRelationships(constraints))
			if err != nil {
				return Plan{}, err
			}
			return Plan{SQL: stmt.SQL, Args: stmt.Args, Kind: KindSelect, Tables: intent.Tables, Source: SourceSmart}, nil
		}
	}

	resolved, err := ResolveTables(ctx, text, tables, env.Catalog.TableSchema, constraints)
	if err != nil {
		return Plan{}, err
	}
	stmt, kind, err := asm.Assemble(ctx, text, resolved)
	if err != nil {
		return Plan{}, err
	}
	return Plan{SQL: stmt.SQL, Args: stmt.Args, Kind: kind, Tables: resolved, Source: SourceHeuristic}, nil
}

func containsTable(tables []string, table string) bool {
	for _, candidate := range tables {
		if strings.EqualFold(candidate, table) {
			return true
		}
	}
	return false
}
