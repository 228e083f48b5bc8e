// Package errclass classifies errors from the streaming transport into the
// categories that drive the retry policy.
package errclass

import "strings"

// Type is the error category.
type Type string

const (
	// Transient errors are retried automatically with backoff.
	Transient Type = "transient"
	// Auth errors are never retried; credentials must change, not code.
	Auth Type = "auth"
	// Network errors are retried the same way as transient ones.
	Network Type = "network"
	// Permanent is the default for anything unrecognized; never retried.
	Permanent Type = "permanent"
)

// Retryable reports whether the category qualifies for automatic retry.
func (t Type) Retryable() bool {
	return t == Transient || t == Network
}

// Keyword lists, matched case-insensitively in precedence order.
// First match wins; transient beats auth beats network.
var (
	transientKeywords = []string{
		"rate limit",
		"429",
		"timeout",
		"etimedout",
		"socket hang up",
		"econnreset",
		"process exited with code 1",
	}
	authKeywords = []string{
		"unauthorized",
		"401",
		"invalid api key",
		"forbidden",
		"403",
		"authentication",
	}
	networkKeywords = []string{
		"network",
		"enotfound",
		"dns",
		"getaddrinfo",
		"econnrefused",
	}
)

// Classify maps an error to exactly one category. It is a total function:
// nil errors and arbitrary message text (any length, any encoding) are
// handled without panicking.
func Classify(err error) Type {
	if err == nil {
		return Permanent
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage classifies a raw error message string.
func ClassifyMessage(message string) Type {
	msg := strings.ToLower(message)

	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return Transient
		}
	}
	for _, kw := range authKeywords {
		if strings.Contains(msg, kw) {
			return Auth
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(msg, kw) {
			return Network
		}
	}
	return Permanent
}
