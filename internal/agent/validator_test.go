package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestValidator() *Validator {
	return NewValidator(testRoutingConfig().ForbiddenSQL)
}

func TestValidateRejectsEveryForbiddenKeyword(t *testing.T) {
	v := newTestValidator()

	for _, keyword := range testRoutingConfig().ForbiddenSQL {
		t.Run(keyword, func(t *testing.T) {
			valid, reason := v.Validate(fmt.Sprintf("%s TABLE x", keyword))
			assert.False(t, valid)
			assert.Contains(t, reason, keyword, "reason must name the offending keyword")
		})
	}
}

func TestValidateRejectsEmptyInput(t *testing.T) {
	v := newTestValidator()

	for _, input := range []string{"", "   ", "\n\t"} {
		valid, reason := v.Validate(input)
		assert.False(t, valid)
		assert.Contains(t, reason, "empty")
	}
}

func TestValidateWholeWordMatching(t *testing.T) {
	v := newTestValidator()

	// Forbidden verbs embedded inside identifiers must not trip the gate
	valid, reason := v.Validate("SELECT dropped_calls, updated_at FROM support_metrics")
	assert.True(t, valid, reason)

	valid, reason = v.Validate("select * from sales; DROP TABLE sales")
	assert.False(t, valid)
	assert.Contains(t, reason, "DROP")
}

func TestValidateCommentStripping(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		valid bool
	}{
		{
			name:  "leading line comment before SELECT",
			sql:   "-- top brands\nSELECT brand FROM sales",
			valid: true,
		},
		{
			name:  "leading block comment before SELECT",
			sql:   "/* quarterly report */ SELECT region, SUM(amount) FROM sales GROUP BY region",
			valid: true,
		},
		{
			name:  "comments hiding a non-SELECT statement",
			sql:   "-- harmless\nWITH x AS (SELECT 1) SELECT * FROM x",
			valid: false,
		},
		{
			name:  "plain select",
			sql:   "SELECT 1",
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := newTestValidator().Validate(tt.sql)
			assert.Equal(t, tt.valid, valid, reason)
		})
	}
}

func TestValidateInjectionAttempt(t *testing.T) {
	// Defense in depth: even if a generation call ever produced this, the
	// gate rejects it regardless of upstream input filtering.
	valid, reason := newTestValidator().Validate("DROP TABLE users; what are sales?")
	assert.False(t, valid)
	assert.Contains(t, reason, "DROP")
}
