package errclass

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Type
	}{
		{name: "rate limit", message: "rate limit exceeded", expected: Transient},
		{name: "429", message: "request failed with status 429", expected: Transient},
		{name: "timeout", message: "connection Timeout after 30s", expected: Transient},
		{name: "etimedout", message: "connect ETIMEDOUT 1.2.3.4:443", expected: Transient},
		{name: "socket hang up", message: "socket hang up", expected: Transient},
		{name: "econnreset", message: "read ECONNRESET", expected: Transient},
		{name: "subprocess exit", message: "process exited with code 1", expected: Transient},

		{name: "unauthorized", message: "401 Unauthorized", expected: Auth},
		{name: "invalid key", message: "Invalid API key provided", expected: Auth},
		{name: "forbidden", message: "403 Forbidden", expected: Auth},
		{name: "authentication", message: "authentication failed", expected: Auth},

		{name: "dns", message: "DNS lookup failed", expected: Network},
		{name: "enotfound", message: "getaddrinfo ENOTFOUND api.example.com", expected: Network},
		{name: "econnrefused", message: "connect ECONNREFUSED 127.0.0.1:8080", expected: Network},
		{name: "network", message: "Network is unreachable", expected: Network},

		{name: "plain text", message: "hello world", expected: Permanent},
		{name: "empty", message: "", expected: Permanent},
		{name: "unrelated failure", message: "invalid tool input schema", expected: Permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(errors.New(tt.message)))
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// Transient keywords win over auth and network keywords in the same message.
	assert.Equal(t, Transient, ClassifyMessage("network timeout"))
	assert.Equal(t, Transient, ClassifyMessage("401 rate limit"))
	// Auth wins over network.
	assert.Equal(t, Auth, ClassifyMessage("network access forbidden"))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	for _, kw := range []string{"RATE LIMIT", "Timeout", "UNAUTHORIZED", "Forbidden", "NETWORK", "Dns"} {
		upper := Classify(errors.New(strings.ToUpper(kw)))
		lower := Classify(errors.New(strings.ToLower(kw)))
		mixed := Classify(errors.New(kw))
		assert.Equal(t, lower, upper, kw)
		assert.Equal(t, lower, mixed, kw)
	}
}

func TestClassifyTotal(t *testing.T) {
	valid := map[Type]bool{Transient: true, Auth: true, Network: true, Permanent: true}

	inputs := []string{
		strings.Repeat("a", 100_000),
		"日本語のエラーメッセージ ☃ \xff\xfe",
		"\x00\x01\x02",
		strings.Repeat("rate limi", 10_000) + "t",
	}
	for i, msg := range inputs {
		result := Classify(fmt.Errorf("%s", msg))
		assert.True(t, valid[result], "input %d produced %q", i, result)
	}

	assert.Equal(t, Permanent, Classify(nil))
}

func TestClassifyDeterministic(t *testing.T) {
	err := errors.New("some socket hang up mid-stream")
	first := Classify(err)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(err))
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Transient.Retryable())
	assert.True(t, Network.Retryable())
	assert.False(t, Auth.Retryable())
	assert.False(t, Permanent.Retryable())
}
