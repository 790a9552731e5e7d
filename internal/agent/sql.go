package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
)

// stripCodeFence removes markdown fencing the generation model sometimes
// wraps around the query.
func stripCodeFence(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.HasPrefix(sql, "```") {
		sql = strings.Trim(sql, "`\n")
		// Drop a leading language tag like "sql"
		if idx := strings.Index(sql, "\n"); idx != -1 {
			first := strings.TrimSpace(sql[:idx])
			if len(first) <= 10 && !strings.ContainsAny(first, " \t") {
				sql = sql[idx+1:]
			}
		}
	}
	if idx := strings.Index(sql, "\n```"); idx != -1 {
		sql = sql[:idx]
	}
	return strings.TrimSpace(sql)
}

// runSQLPipeline executes the analytics strategy: schema lookup, query
// generation, safety validation, execution, answer synthesis. Validation and
// execution failures are captured as the observed result and explained by the
// synthesis step; only LLM-service failures propagate.
func (a *Agent) runSQLPipeline(ctx context.Context, question, history string) (*Result, error) {
	start := time.Now()
	a.logger.Info("sql pipeline started")

	var schema string
	err := a.exec.Do(ctx, func(ctx context.Context) error {
		var schemaErr error
		schema, schemaErr = a.warehouse.GetSchema(ctx)
		return schemaErr
	})
	if err != nil {
		return nil, fmt.Errorf("schema lookup failed: %w", err)
	}

	historyText := ""
	if history != "" {
		historyText = history + "\n\n"
	}
	genCompletion, err := a.llm.Invoke(ctx, []llm.Message{
		llm.System(sqlGenerationSystemPrompt),
		llm.User(historyText + fmt.Sprintf(sqlGenerationUserPrompt, schema, question)),
	})
	if err != nil {
		return nil, fmt.Errorf("sql generation failed: %w", err)
	}
	generatedSQL := stripCodeFence(genCompletion.Text)

	a.logger.WithFields(logrus.Fields{
		"sql":    truncate(generatedSQL, 150),
		"tokens": genCompletion.Usage.TotalTokens,
	}).Info("sql generated")

	trace := []string{
		fmt.Sprintf("Route selected: %s", RouteSQL),
		fmt.Sprintf("Generated SQL:\n%s", generatedSQL),
	}

	var rowsRepr string
	if valid, reason := a.validator.Validate(generatedSQL); !valid {
		a.logger.WithField("reason", reason).Warn("sql validation failed")
		rowsRepr = fmt.Sprintf("SQL query validation failed: %s", reason)
		trace = append(trace, rowsRepr)
	} else {
		execErr := a.exec.Do(ctx, func(ctx context.Context) error {
			var runErr error
			rowsRepr, runErr = a.warehouse.Run(ctx, generatedSQL)
			return runErr
		})
		if execErr != nil {
			// Captured, not raised: synthesis explains the failure to the user
			a.logger.WithError(execErr).Error("sql execution failed")
			rowsRepr = fmt.Sprintf("SQL execution failed: %v", execErr)
			trace = append(trace, rowsRepr)
		} else {
			a.logger.WithField("result_chars", len(rowsRepr)).Info("sql executed")
			trace = append(trace, fmt.Sprintf("SQL execution output: %s", truncate(rowsRepr, 200)))
		}
	}

	synthesis, err := a.llm.Invoke(ctx, []llm.Message{
		llm.System(sqlSynthesisSystemPrompt),
		llm.User(fmt.Sprintf(
			"%sQuestion: %s\n\nSQL Query:\n%s\n\nResult Rows:\n%s",
			historyText, question, generatedSQL, rowsRepr,
		)),
	})
	if err != nil {
		return nil, fmt.Errorf("sql synthesis failed: %w", err)
	}
	answer := strings.TrimSpace(synthesis.Text)

	a.logger.WithFields(logrus.Fields{
		"answer_chars": len(answer),
		"tokens":       genCompletion.Usage.TotalTokens + synthesis.Usage.TotalTokens,
		"duration":     time.Since(start).String(),
	}).Info("sql pipeline completed")

	sqlCopy := generatedSQL
	return &Result{
		Answer:    answer,
		Route:     RouteSQL,
		SQLQuery:  &sqlCopy,
		Citations: []Citation{},
		ToolTrace: trace,
		sqlRows:   rowsRepr,
	}, nil
}
