package agent

// Route is the chosen execution strategy for a question
type Route string

const (
	RouteSQL     Route = "SQL"
	RouteRAG     Route = "RAG"
	RouteHybrid  Route = "HYBRID"
	RouteNone    Route = "NONE"
	RouteUnknown Route = "UNKNOWN"
)

// ragToolName identifies the retrieval tool in traces
const ragToolName = "knowledge_base_search"

// Citation is a sanitized reference to a retrieved document passage. The
// source carries a generic document-category label, never a file path.
type Citation struct {
	SourceDocument string `json:"source_document"`
	Page           *int   `json:"page"`
	Content        string `json:"content"`
}

// Result is the canonical output of every pipeline run
type Result struct {
	Answer    string     `json:"answer"`
	Route     Route      `json:"route"`
	SQLQuery  *string    `json:"sql_query"`
	Citations []Citation `json:"citations"`
	ToolTrace []string   `json:"tool_trace"`

	// Merge-only fields consumed by the hybrid pipeline; never exposed past
	// the agent boundary.
	sqlRows    string
	docContext string
}
