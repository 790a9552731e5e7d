package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
)

type hybridSplit struct {
	SQLQuestion string `json:"sql_question"`
	RAGQuestion string `json:"rag_question"`
}

// splitQuestion asks the splitting service for one warehouse-phrased and one
// document-phrased sub-question. An unparseable reply yields two empty
// strings; the caller falls back to the original question for each leg.
func (a *Agent) splitQuestion(ctx context.Context, question, history string) (string, string, error) {
	historyText := ""
	if history != "" {
		historyText = history + "\n\n"
	}
	completion, err := a.llm.Invoke(ctx, []llm.Message{
		llm.System(hybridSplitSystemPrompt),
		llm.User(fmt.Sprintf("%sQuestion: %s", historyText, question)),
	})
	if err != nil {
		return "", "", fmt.Errorf("question split failed: %w", err)
	}

	var split hybridSplit
	if err := json.Unmarshal([]byte(completion.Text), &split); err != nil {
		a.logger.WithField("reply", truncate(completion.Text, 120)).Warn("split reply was not valid JSON")
		return "", "", nil
	}
	return strings.TrimSpace(split.SQLQuestion), strings.TrimSpace(split.RAGQuestion), nil
}

// runHybridPipeline splits the question, runs the analytics and retrieval
// legs concurrently, and merges both results into one answer. A failure in
// either leg aborts the whole run; partial results are not synthesized.
func (a *Agent) runHybridPipeline(ctx context.Context, question, history string) (*Result, error) {
	start := time.Now()
	a.logger.Info("hybrid pipeline started")

	sqlQuestion, ragQuestion, err := a.splitQuestion(ctx, question, history)
	if err != nil {
		return nil, err
	}
	if sqlQuestion == "" {
		sqlQuestion = question
	}
	if ragQuestion == "" {
		ragQuestion = question
	}

	var sqlResult, ragResult *Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var legErr error
		sqlResult, legErr = a.runSQLPipeline(gctx, sqlQuestion, history)
		return legErr
	})
	g.Go(func() error {
		var legErr error
		ragResult, legErr = a.runRAGPipeline(gctx, ragQuestion, history)
		return legErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid leg failed: %w", err)
	}

	sqlQuery := "<not generated>"
	if sqlResult.SQLQuery != nil {
		sqlQuery = *sqlResult.SQLQuery
	}
	historyText := ""
	if history != "" {
		historyText = history + "\n\n"
	}
	completion, err := a.llm.Invoke(ctx, []llm.Message{
		llm.System(hybridSynthesisSystemPrompt),
		llm.User(fmt.Sprintf(
			"%sQuestion: %s\n\nSQL Summary:\n%s\n\nSQL Query:\n%s\n\nSQL Raw Rows:\n%s\n\nDocument Context:\n%s",
			historyText, question, sqlResult.Answer, sqlQuery, sqlResult.sqlRows, ragResult.docContext,
		)),
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid synthesis failed: %w", err)
	}
	answer := strings.TrimSpace(completion.Text)

	a.logger.WithFields(logrus.Fields{
		"answer_chars": len(answer),
		"tokens":       completion.Usage.TotalTokens,
		"duration":     time.Since(start).String(),
	}).Info("hybrid pipeline completed")

	trace := []string{
		"Router decision: HYBRID",
		fmt.Sprintf("Hybrid split -> SQL question: %s", sqlQuestion),
		fmt.Sprintf("Hybrid split -> RAG question: %s", ragQuestion),
	}
	trace = append(trace, sqlResult.ToolTrace...)
	trace = append(trace, ragResult.ToolTrace...)
	trace = append(trace, "Hybrid synthesis completed")

	return &Result{
		Answer:    answer,
		Route:     RouteHybrid,
		SQLQuery:  sqlResult.SQLQuery,
		Citations: ragResult.Citations,
		ToolTrace: trace,
	}, nil
}
