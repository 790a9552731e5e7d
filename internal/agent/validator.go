package agent

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Validator gates generated SQL before execution. It is a conservative
// whole-word verb denylist plus a SELECT-only check, not a SQL parser; a
// false positive degrades usability, never safety.
type Validator struct {
	forbidden []forbiddenKeyword
}

type forbiddenKeyword struct {
	keyword string
	re      *regexp.Regexp
}

// NewValidator compiles the forbidden keyword set
func NewValidator(keywords []string) *Validator {
	v := &Validator{}
	for _, kw := range keywords {
		upper := strings.ToUpper(strings.TrimSpace(kw))
		if upper == "" {
			continue
		}
		v.forbidden = append(v.forbidden, forbiddenKeyword{
			keyword: upper,
			re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(upper) + `\b`),
		})
	}
	return v
}

// Validate reports whether the candidate query is safe to execute, with a
// reason naming the offending keyword or rule when it is not.
func (v *Validator) Validate(sql string) (bool, string) {
	if strings.TrimSpace(sql) == "" {
		return false, "SQL query cannot be empty"
	}

	upper := strings.ToUpper(strings.TrimSpace(sql))
	normalized := whitespaceRe.ReplaceAllString(upper, " ")

	for _, f := range v.forbidden {
		if f.re.MatchString(normalized) {
			return false, fmt.Sprintf("SQL query contains forbidden operation: %s", f.keyword)
		}
	}

	// Comments are stripped before whitespace collapsing so a line comment
	// cannot swallow the statement that follows it.
	stripped := lineCommentRe.ReplaceAllString(upper, "")
	stripped = blockCommentRe.ReplaceAllString(stripped, "")
	stripped = strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))

	if !strings.HasPrefix(stripped, "SELECT") {
		return false, "SQL query must be a SELECT statement only"
	}

	return true, ""
}
