package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
	"github.com/dealerdesk/dealerdesk-backend/internal/vectorstore"
)

// manual document tokens include the model names the corpus covers
var manualTokens = []string{"manual", "rav4", "yaris"}

// sanitizeSource maps a raw ingested source identifier to a generic document
// category. File paths and names must never leak to the caller.
func sanitizeSource(source string) string {
	lowered := strings.ToLower(source)
	switch {
	case strings.Contains(lowered, "contract"):
		return "Contract Document"
	case containsAny(lowered, manualTokens):
		return "Manual Document"
	case strings.Contains(lowered, "warranty") || strings.Contains(lowered, "policy"):
		return "Policy Document"
	case strings.Contains(lowered, "appendix"):
		return "Policy Appendix"
	default:
		return "Document"
	}
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func buildCitations(docs []vectorstore.Document) []Citation {
	citations := make([]Citation, 0, len(docs))
	for _, doc := range docs {
		source := "Document"
		if doc.Source != "" {
			source = sanitizeSource(doc.Source)
		}
		citations = append(citations, Citation{
			SourceDocument: source,
			Page:           doc.Page,
			Content:        doc.Content,
		})
	}
	return citations
}

// formatDocsForPrompt renders the retrieved passages with sanitized
// source+page headers into one context block.
func formatDocsForPrompt(docs []vectorstore.Document) string {
	sections := make([]string, 0, len(docs))
	for i, doc := range docs {
		source := "Document"
		if doc.Source != "" {
			source = sanitizeSource(doc.Source)
		}
		header := fmt.Sprintf("[Document %d] Source: %s", i+1, source)
		if doc.Page != nil {
			header += fmt.Sprintf(" | Page: %d", *doc.Page)
		}
		sections = append(sections, header+"\n"+doc.Content)
	}
	return strings.Join(sections, "\n\n")
}

// runRAGPipeline executes the retrieval strategy: similarity search, citation
// building, answer synthesis. sql_query is always nil on this route.
func (a *Agent) runRAGPipeline(ctx context.Context, question, history string) (*Result, error) {
	start := time.Now()
	a.logger.Info("rag pipeline started")

	var docs []vectorstore.Document
	err := a.exec.Do(ctx, func(ctx context.Context) error {
		var searchErr error
		docs, searchErr = a.search.Search(ctx, question, a.topK)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	a.logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"top_k":     a.topK,
	}).Info("rag search completed")

	citations := buildCitations(docs)
	docContext := formatDocsForPrompt(docs)

	promptContext := docContext
	if promptContext == "" {
		promptContext = "<no relevant context>"
	}
	historyText := ""
	if history != "" {
		historyText = history + "\n\n"
	}
	completion, err := a.llm.Invoke(ctx, []llm.Message{
		llm.System(ragSystemPrompt),
		llm.User(fmt.Sprintf("%sQuestion: %s\n\nContext:\n%s", historyText, question, promptContext)),
	})
	if err != nil {
		return nil, fmt.Errorf("rag synthesis failed: %w", err)
	}
	answer := strings.TrimSpace(completion.Text)

	a.logger.WithFields(logrus.Fields{
		"answer_chars": len(answer),
		"tokens":       completion.Usage.TotalTokens,
		"duration":     time.Since(start).String(),
	}).Info("rag pipeline completed")

	toolOutput, _ := json.Marshal(citations)
	trace := []string{
		fmt.Sprintf("Route selected: %s", RouteRAG),
		fmt.Sprintf("Tool: %s | input: %s", ragToolName, question),
		fmt.Sprintf("Output: %s", truncate(string(toolOutput), 200)),
	}

	return &Result{
		Answer:     answer,
		Route:      RouteRAG,
		SQLQuery:   nil,
		Citations:  citations,
		ToolTrace:  trace,
		docContext: docContext,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so trace entries stay valid UTF-8
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
