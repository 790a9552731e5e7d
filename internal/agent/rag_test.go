package agent

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk-backend/internal/vectorstore"
)

func TestSanitizeSource(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"Contract_Toyota_2023.pdf", "Contract Document"},
		{"docs/manuals/owner_manual_v2.txt", "Manual Document"},
		{"Toyota_RAV4.txt", "Manual Document"},
		{"yaris_specs.pdf", "Manual Document"},
		{"Warranty_Terms.pdf", "Policy Document"},
		{"regional_policy_2024.md", "Policy Document"},
		{"appendix_b.pdf", "Policy Appendix"},
		{"random_notes.txt", "Document"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSource(tt.source))
		})
	}
}

func TestBuildCitationsNeverLeaksPaths(t *testing.T) {
	page := 12
	docs := []vectorstore.Document{
		{Content: "Coverage lasts 36 months.", Source: "/data/docs/Warranty_Policy.pdf", Page: &page},
		{Content: "Check oil every 10k km.", Source: "manuals/rav4.pdf"},
		{Content: "orphan chunk", Source: ""},
	}

	citations := buildCitations(docs)
	require.Len(t, citations, 3)

	assert.Equal(t, "Policy Document", citations[0].SourceDocument)
	assert.Equal(t, &page, citations[0].Page)
	assert.Equal(t, "Coverage lasts 36 months.", citations[0].Content)
	assert.Equal(t, "Manual Document", citations[1].SourceDocument)
	assert.Equal(t, "Document", citations[2].SourceDocument)

	for _, c := range citations {
		assert.NotContains(t, c.SourceDocument, "/")
		assert.NotContains(t, c.SourceDocument, ".pdf")
	}
}

func TestFormatDocsForPrompt(t *testing.T) {
	page := 3
	docs := []vectorstore.Document{
		{Content: "first passage", Source: "contract_a.pdf", Page: &page},
		{Content: "second passage", Source: "notes.txt"},
	}

	out := formatDocsForPrompt(docs)
	assert.Contains(t, out, "[Document 1] Source: Contract Document | Page: 3")
	assert.Contains(t, out, "first passage")
	assert.Contains(t, out, "[Document 2] Source: Document")
	assert.Contains(t, out, "second passage")
	assert.NotContains(t, out, "contract_a.pdf")
}

func TestRAGPipeline(t *testing.T) {
	page := 7
	client := newFakeLLM()
	client.replies[ragSystemPrompt] = "The warranty covers 36 months."
	search := &fakeSearcher{docs: []vectorstore.Document{
		{Content: "Warranty covers 36 months or 60k km.", Source: "Warranty_Policy.pdf", Page: &page},
	}}

	a := newTestAgent(client, search, &fakeWarehouse{})
	result, err := a.runRAGPipeline(context.Background(), "how long is the warranty", "")
	require.NoError(t, err)

	assert.Equal(t, RouteRAG, result.Route)
	assert.Nil(t, result.SQLQuery)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "Policy Document", result.Citations[0].SourceDocument)
	assert.Equal(t, "The warranty covers 36 months.", result.Answer)

	require.Len(t, result.ToolTrace, 3)
	assert.Equal(t, "Route selected: RAG", result.ToolTrace[0])
	assert.Contains(t, result.ToolTrace[1], ragToolName)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))

	// Multibyte content must never be cut mid-rune
	s := "garantía de 36 meses — cobertura completa"
	for n := 0; n <= len(s); n++ {
		out := truncate(s, n)
		assert.True(t, utf8.ValidString(out), "truncate(%q, %d) = %q", s, n, out)
		assert.LessOrEqual(t, len(out), n)
	}
}

func TestRAGPipelineNoResults(t *testing.T) {
	client := newFakeLLM()
	client.replies[ragSystemPrompt] = "I could not find anything relevant."

	a := newTestAgent(client, &fakeSearcher{}, &fakeWarehouse{})
	result, err := a.runRAGPipeline(context.Background(), "obscure question", "")
	require.NoError(t, err)

	assert.Empty(t, result.Citations)

	// The synthesis prompt must carry the explicit placeholder
	var found bool
	for _, msg := range client.userMessages() {
		if strings.Contains(msg, "<no relevant context>") {
			found = true
		}
	}
	assert.True(t, found, "empty retrieval must inject the no-context placeholder")
}
