package logging

import (
	"fmt"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	keySplitter   = regexp.MustCompile(`[^a-z0-9]+`)
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)
)

// redactor redacts sensitive values in log key-value pairs.
type redactor struct {
	sensitiveWords map[string]bool
}

func newRedactor() *redactor {
	words := []string{"secret", "password", "token", "key", "auth", "authorization", "credential", "bearer"}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return &redactor{sensitiveWords: m}
}

// redact returns a copy of the flattened key-value pairs where values of
// sensitive keys are replaced and bearer credentials embedded in string or
// error values are masked.
func (r *redactor) redact(pairs []any) []any {
	if len(pairs) == 0 {
		return pairs
	}
	result := make([]any, len(pairs))
	copy(result, pairs)
	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		if r.isSensitive(key) {
			result[i+1] = redacted
			continue
		}
		switch v := result[i+1].(type) {
		case string:
			result[i+1] = maskBearer(v)
		case error:
			result[i+1] = maskBearer(v.Error())
		case fmt.Stringer:
			result[i+1] = maskBearer(v.String())
		}
	}
	return result
}

// isSensitive reports whether the key contains a sensitive word as a separate
// segment, e.g. "api_token" but not "tokenizer".
func (r *redactor) isSensitive(key string) bool {
	for _, part := range keySplitter.Split(strings.ToLower(key), -1) {
		if r.sensitiveWords[part] {
			return true
		}
	}
	return false
}

func maskBearer(s string) string {
	return bearerPattern.ReplaceAllString(s, "Bearer "+redacted)
}
