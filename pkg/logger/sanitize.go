package logger

import (
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"
)

// SanitizedEmail masks an email address for logging ("u***@*****.com")
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	first, size := utf8.DecodeRuneInString(local)
	local = string(first) + strings.Repeat("*", utf8.RuneCountInString(local[size:]))

	labels := strings.Split(domain, ".")
	for i := 0; i < len(labels)-1; i++ {
		labels[i] = strings.Repeat("*", utf8.RuneCountInString(labels[i]))
	}

	return local + "@" + strings.Join(labels, ".")
}

// RedactedAttr hides value in production and passes it through elsewhere
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

var sensitiveParams = []string{"password", "token", "secret", "code", "email", "auth"}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveParams {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// RedactQuery replaces the values of sensitive query parameters.
// A query that cannot be parsed is redacted entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[REDACTED]"
	}

	for key := range values {
		if isSensitive(key) {
			values[key] = []string{"[REDACTED]"}
		}
	}
	return values.Encode()
}
