package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateGeneratesID(t *testing.T) {
	s := NewStore(time.Hour, 10)

	id := s.GetOrCreate("")
	require.NotEmpty(t, id)

	// Same id resolves to the same session
	assert.Equal(t, id, s.GetOrCreate(id))
	assert.Equal(t, 1, s.Len())
}

func TestGetOrCreateAdoptsSuppliedID(t *testing.T) {
	s := NewStore(time.Hour, 10)

	id := s.GetOrCreate("client-chosen-id")
	assert.Equal(t, "client-chosen-id", id)
	assert.Equal(t, 1, s.Len())
}

func TestFormatForPromptContainsQuestionVerbatim(t *testing.T) {
	s := NewStore(time.Hour, 10)
	id := s.GetOrCreate("")

	s.AddExchange(id, "Toyota sales in 2022?", "Toyota sold 500 units in 2022. More detail follows.")
	out := s.FormatForPrompt(id)

	assert.Contains(t, out, "Toyota sales in 2022?")
	// Only the leading sentence of the answer is kept
	assert.Contains(t, out, "Toyota sold 500 units in 2022")
	assert.NotContains(t, out, "More detail follows")
	// Follow-up disambiguation rules ride along
	assert.Contains(t, out, "CONTEXT RULES")
	assert.Contains(t, out, "COMBINE")
}

func TestFormatForPromptEmptyWithoutHistory(t *testing.T) {
	s := NewStore(time.Hour, 10)
	id := s.GetOrCreate("")

	assert.Equal(t, "", s.FormatForPrompt(id))
	assert.Equal(t, "", s.FormatForPrompt("unknown-session"))
}

func TestFormatForPromptBoundsHistory(t *testing.T) {
	s := NewStore(time.Hour, 2)
	id := s.GetOrCreate("")

	s.AddExchange(id, "first question", "a.")
	s.AddExchange(id, "second question", "b.")
	s.AddExchange(id, "third question", "c.")

	out := s.FormatForPrompt(id)
	assert.NotContains(t, out, "first question")
	assert.Contains(t, out, "second question")
	assert.Contains(t, out, "third question")
}

func TestAddExchangeUnknownSessionIgnored(t *testing.T) {
	s := NewStore(time.Hour, 10)
	s.AddExchange("ghost", "q", "a")
	assert.Equal(t, 0, s.Len())
}

func TestSweepRemovesOnlyExpiredSessions(t *testing.T) {
	s := NewStore(time.Hour, 10)

	current := time.Now()
	s.now = func() time.Time { return current }

	expired := s.GetOrCreate("expired")
	current = current.Add(30 * time.Minute)
	fresh := s.GetOrCreate("fresh")

	current = current.Add(45 * time.Minute) // expired is 75m old, fresh is 45m old
	removed := s.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "", s.FormatForPrompt(expired))

	s.AddExchange(fresh, "still here?", "yes.")
	assert.Contains(t, s.FormatForPrompt(fresh), "still here?")
}

func TestSweepIdempotent(t *testing.T) {
	s := NewStore(time.Hour, 10)
	s.GetOrCreate("")

	assert.Equal(t, 0, s.Sweep())
	assert.Equal(t, 0, s.Sweep())
	assert.Equal(t, 1, s.Len())
}
