package agent

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dealerdesk/dealerdesk-backend/internal/config"
	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
	"github.com/dealerdesk/dealerdesk-backend/internal/task"
	"github.com/dealerdesk/dealerdesk-backend/internal/vectorstore"
	"github.com/dealerdesk/dealerdesk-backend/internal/warehouse"
)

// Agent routes a question to one of the three execution pipelines and runs
// it. All external collaborators are injected behind narrow interfaces so
// retry or timeout policy can be added without touching pipeline logic.
type Agent struct {
	llm       llm.Client
	search    vectorstore.Searcher
	warehouse warehouse.Engine
	exec      *task.Executor
	validator *Validator

	topK        int
	sqlKeywords []string
	docKeywords []string

	logger *logrus.Logger
}

// New creates an agent
func New(
	client llm.Client,
	search vectorstore.Searcher,
	wh warehouse.Engine,
	exec *task.Executor,
	routing config.RoutingConfig,
	retrieval config.RetrievalConfig,
	logger *logrus.Logger,
) *Agent {
	if logger == nil {
		logger = logrus.New()
	}
	return &Agent{
		llm:         client,
		search:      search,
		warehouse:   wh,
		exec:        exec,
		validator:   NewValidator(routing.ForbiddenSQL),
		topK:        retrieval.TopK,
		sqlKeywords: lowercaseAll(routing.SQLKeywords),
		docKeywords: lowercaseAll(routing.DocKeywords),
		logger:      logger,
	}
}

// Run decides the route for the question and executes the matching pipeline.
// A classifier failure propagates; the caller maps it to a service-unavailable
// response. An unroutable question yields a fixed insufficient-context answer.
func (a *Agent) Run(ctx context.Context, question, history string) (*Result, error) {
	route, err := a.decideRoute(ctx, question, history)
	if err != nil {
		return nil, err
	}

	switch route {
	case RouteSQL:
		result, err := a.runSQLPipeline(ctx, question, history)
		if err != nil {
			return nil, err
		}
		result.ToolTrace = append([]string{"Router decision: SQL"}, result.ToolTrace...)
		return result, nil
	case RouteRAG:
		result, err := a.runRAGPipeline(ctx, question, history)
		if err != nil {
			return nil, err
		}
		result.ToolTrace = append([]string{"Router decision: RAG"}, result.ToolTrace...)
		return result, nil
	case RouteHybrid:
		return a.runHybridPipeline(ctx, question, history)
	}

	a.logger.WithField("route", RouteNone).Info("question declined: insufficient context")
	return &Result{
		Answer:    insufficientContextAnswer,
		Route:     RouteUnknown,
		Citations: []Citation{},
		ToolTrace: []string{"Router decision: INSUFFICIENT CONTEXT"},
	}, nil
}

func lowercaseAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
