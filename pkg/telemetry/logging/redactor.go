package logging

import (
	"regexp"
	"strings"

	"mercator-hq/beacon/pkg/config"
)

// Redactor removes credentials and personal data from log fields and span
// attributes.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternEmail       = "email"
	PatternPassword    = "password"
)

// sensitiveKeys are field-name fragments whose values are always masked.
var sensitiveKeys = []string{
	"authorization", "auth",
	"cookie",
	"token",
	"password", "passwd", "pwd",
	"secret",
	"api_key", "apikey",
	"private_key",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// customPatterns. Custom patterns that fail to compile are skipped;
// config.Validate reports them before they get here.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	// Bearer runs before the generic key pattern so "Bearer sk-..." keeps its scheme.
	defaults := []struct {
		name        string
		regex       string
		replacement string
	}{
		{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
		{PatternAPIKey, `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`, "sk-***"},
		{PatternEmail, `[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`, "***@$1"},
		{PatternPassword, `(password|passwd|pwd)[:=]\s*[^\s&]+`, "$1=***"},
	}
	for _, p := range defaults {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// RedactString applies every pattern to value in order.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactArgs redacts variadic log arguments of the form key1, value1, ...
// Values under sensitive keys are masked; other string values are
// pattern-redacted. slog.Attr values are not inspected.
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && IsSensitiveKey(key) {
			redacted[i] = maskValue(redacted[i])
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

// RedactMap returns a copy of attrs with sensitive keys masked and string
// values pattern-redacted.
func (r *Redactor) RedactMap(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch {
		case IsSensitiveKey(k):
			out[k] = maskValue(v)
		default:
			if s, ok := v.(string); ok {
				out[k] = r.RedactString(s)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// IsSensitiveKey reports whether a field name indicates secret data.
func IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// maskValue hides a sensitive value, keeping a four character hint of
// long strings.
func maskValue(value any) any {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ""
		}
		if len(v) <= 8 {
			return "***"
		}
		return v[:4] + "***"
	default:
		return "***"
	}
}
