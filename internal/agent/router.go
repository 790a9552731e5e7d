package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
)

var sqlSyntaxRe = regexp.MustCompile(`\bselect\b|\bfrom\b|\bwhere\b|\bgroup by\b`)

// looksStructured reports whether the question carries sales-warehouse
// vocabulary or SQL syntax fragments.
func (a *Agent) looksStructured(question string) bool {
	lowered := strings.ToLower(question)
	if sqlSyntaxRe.MatchString(lowered) {
		return true
	}
	for _, kw := range a.sqlKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// looksDocumentary reports whether the question carries policy/manual
// vocabulary.
func (a *Agent) looksDocumentary(question string) bool {
	lowered := strings.ToLower(question)
	for _, kw := range a.docKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// decideRoute classifies the question. An explicit classifier choice wins;
// the heuristic signals are the fallback for ambiguous or unparseable
// replies only. A failed classifier call propagates - routing never guesses
// under a system failure.
func (a *Agent) decideRoute(ctx context.Context, question, history string) (Route, error) {
	structured := a.looksStructured(question)
	documentary := a.looksDocumentary(question)

	a.logger.WithFields(logrus.Fields{
		"structured_hint":  structured,
		"documentary_hint": documentary,
	}).Info("router analyzing question")

	historyText := ""
	if history != "" {
		historyText = history + "\n\n"
	}
	completion, err := a.llm.Invoke(ctx, []llm.Message{
		llm.System(routeSystemPrompt),
		llm.User(fmt.Sprintf(
			"%sQuestion: %s\nStructured hint: %t\nDocumentary hint: %t",
			historyText, question, structured, documentary,
		)),
	})
	if err != nil {
		return RouteNone, fmt.Errorf("route classification failed: %w", err)
	}

	choice := strings.ToUpper(strings.TrimSpace(completion.Text))

	var route Route
	switch {
	case strings.Contains(choice, "BOTH") || strings.Contains(choice, "HYBRID"):
		route = RouteHybrid
	case strings.Contains(choice, "SQL"):
		route = RouteSQL
	case strings.Contains(choice, "RAG"):
		route = RouteRAG
	case strings.Contains(choice, "NONE"):
		route = RouteNone
	default:
		// Unparseable reply: fall back to the heuristic signals
		switch {
		case structured && documentary:
			route = RouteHybrid
		case structured:
			route = RouteSQL
		case documentary:
			route = RouteRAG
		default:
			route = RouteNone
		}
		a.logger.WithFields(logrus.Fields{
			"classifier_reply": choice,
			"route":            route,
		}).Info("router used heuristic fallback")
		return route, nil
	}

	a.logger.WithFields(logrus.Fields{
		"classifier_reply": choice,
		"route":            route,
		"tokens":           completion.Usage.TotalTokens,
	}).Info("router decision")
	return route, nil
}
