package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/dealerdesk-backend/internal/agent"
	"github.com/dealerdesk/dealerdesk-backend/internal/config"
	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
	"github.com/dealerdesk/dealerdesk-backend/internal/memory"
	"github.com/dealerdesk/dealerdesk-backend/internal/ratelimit"
	"github.com/dealerdesk/dealerdesk-backend/internal/repository"
	"github.com/dealerdesk/dealerdesk-backend/internal/task"
	"github.com/dealerdesk/dealerdesk-backend/internal/vectorstore"
	"github.com/dealerdesk/dealerdesk-backend/internal/warehouse"
)

type scriptedLLM struct {
	routeReply string
	ragReply   string
	err        error
}

func (s *scriptedLLM) Invoke(_ context.Context, messages []llm.Message) (*llm.Completion, error) {
	if s.err != nil {
		return nil, s.err
	}
	// First call per request is the route classification
	reply := s.ragReply
	if messages[len(messages)-1].Role == llm.RoleUser &&
		bytes.Contains([]byte(messages[len(messages)-1].Content), []byte("Structured hint:")) {
		reply = s.routeReply
	}
	return &llm.Completion{Text: reply}, nil
}

type noopSearcher struct{}

func (noopSearcher) Search(context.Context, string, int) ([]vectorstore.Document, error) {
	return nil, nil
}

type noopWarehouse struct{}

func (noopWarehouse) Run(context.Context, string) (string, error) { return "[]", nil }

func (noopWarehouse) GetSchema(context.Context) (string, error) { return "Table sales", nil }

type failingWarehouse struct{}

func (failingWarehouse) Run(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func (failingWarehouse) GetSchema(context.Context) (string, error) {
	return "", errors.New("connection refused")
}

type countingStore struct {
	counts map[string]int
}

func (c *countingStore) GetCount(_ context.Context, id string, _ time.Time) (int, error) {
	return c.counts[id], nil
}

func (c *countingStore) UpsertIncrement(_ context.Context, id string, _ time.Time) (int, error) {
	c.counts[id]++
	return c.counts[id], nil
}

func (c *countingStore) Reset(_ context.Context, id string, _ time.Time) (int64, error) {
	c.counts[id] = 0
	return 1, nil
}

func (c *countingStore) List(context.Context, *time.Time) ([]repository.RateLimitRecord, error) {
	return nil, nil
}

func newTestApp(client llm.Client, store *countingStore, dailyLimit int) (*fiber.App, Deps) {
	return newTestAppWith(client, noopWarehouse{}, store, dailyLimit)
}

func newTestAppWith(client llm.Client, wh warehouse.Engine, store *countingStore, dailyLimit int) (*fiber.App, Deps) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true, DailyLimit: dailyLimit},
		Routing: config.RoutingConfig{
			SQLKeywords:  []string{"sales"},
			DocKeywords:  []string{"warranty"},
			ForbiddenSQL: []string{"DROP"},
		},
		Retrieval: config.RetrievalConfig{TopK: 4},
	}

	qaAgent := agent.New(client, noopSearcher{}, wh, task.NewExecutor(2), cfg.Routing, cfg.Retrieval, logger)

	deps := Deps{
		Agent:   qaAgent,
		Memory:  memory.NewStore(time.Hour, 10),
		Limiter: ratelimit.NewLimiter(store),
		Config:  cfg,
		Logger:  logger,
	}

	app := fiber.New()
	app.Post("/ask", Ask(deps))
	return app, deps
}

func postAsk(t *testing.T, app *fiber.App, body AskRequest) (*AskResponse, int) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/ask", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed AskResponse
	if resp.StatusCode == fiber.StatusOK {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return &parsed, resp.StatusCode
}

func TestAskRAGFlow(t *testing.T) {
	client := &scriptedLLM{routeReply: "RAG", ragReply: "Covered for 36 months."}
	store := &countingStore{counts: map[string]int{}}
	app, _ := newTestApp(client, store, 20)

	resp, status := postAsk(t, app, AskRequest{Question: "what does the warranty cover"})
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, agent.RouteRAG, resp.Route)
	assert.Equal(t, "Covered for 36 months.", resp.Answer)
	assert.NotEmpty(t, resp.SessionID)
	require.NotNil(t, resp.RateLimitInfo)
	assert.Equal(t, 1, resp.RateLimitInfo.CurrentCount)
	assert.Equal(t, 19, resp.RateLimitInfo.RemainingInteractions)
}

func TestAskSessionContinuity(t *testing.T) {
	client := &scriptedLLM{routeReply: "RAG", ragReply: "Answer."}
	store := &countingStore{counts: map[string]int{}}
	app, deps := newTestApp(client, store, 20)

	first, status := postAsk(t, app, AskRequest{Question: "warranty length?"})
	require.Equal(t, fiber.StatusOK, status)

	second, status := postAsk(t, app, AskRequest{Question: "and for used cars?", SessionID: first.SessionID})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, first.SessionID, second.SessionID)

	history := deps.Memory.FormatForPrompt(first.SessionID)
	assert.Contains(t, history, "warranty length?")
	assert.Contains(t, history, "and for used cars?")
}

func TestAskQuotaExceeded(t *testing.T) {
	client := &scriptedLLM{routeReply: "RAG", ragReply: "Answer."}
	store := &countingStore{counts: map[string]int{"203.0.113.9": 20}}
	app, _ := newTestApp(client, store, 20)

	_, status := postAsk(t, app, AskRequest{Question: "warranty?"})
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, 20, store.counts["203.0.113.9"], "rejected requests are not recorded")
}

func TestAskFailedPipelineStillCountsAgainstQuota(t *testing.T) {
	client := &scriptedLLM{err: fmt.Errorf("%w: connection refused", llm.ErrUnavailable)}
	store := &countingStore{counts: map[string]int{}}
	app, _ := newTestApp(client, store, 20)

	_, status := postAsk(t, app, AskRequest{Question: "warranty?"})
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, 1, store.counts["203.0.113.9"], "the interaction is recorded before the pipeline runs")
}

func TestAskWarehouseOutageIsNotServiceUnavailable(t *testing.T) {
	// A database failure is an internal error; only completion-service
	// outages map to 503.
	client := &scriptedLLM{routeReply: "SQL", ragReply: "unused"}
	store := &countingStore{counts: map[string]int{}}
	app, _ := newTestAppWith(client, failingWarehouse{}, store, 20)

	_, status := postAsk(t, app, AskRequest{Question: "total sales"})
	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestAskEmptyQuestionRejected(t *testing.T) {
	client := &scriptedLLM{routeReply: "RAG", ragReply: "Answer."}
	store := &countingStore{counts: map[string]int{}}
	app, _ := newTestApp(client, store, 20)

	_, status := postAsk(t, app, AskRequest{Question: "   "})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, 0, store.counts["203.0.113.9"])
}
