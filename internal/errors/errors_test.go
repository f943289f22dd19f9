package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapKeepsCodeAndCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeNetwork, cause, "请求区块浏览器失败", WithMetadata("action", "get_balance"))

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
	if CodeOf(err) != CodeNetwork {
		t.Fatalf("unexpected code %s", CodeOf(err))
	}
	if got := err.Metadata()["action"]; got != "get_balance" {
		t.Fatalf("metadata lost: %q", got)
	}
	if !RetryableError(err) {
		t.Fatalf("network errors should be retryable by default")
	}
}

func TestCodeOfThroughFmtWrap(t *testing.T) {
	inner := New(CodeDecode, "")
	outer := fmt.Errorf("outer: %w", inner)

	if CodeOf(outer) != CodeDecode {
		t.Fatalf("expected DECODE, got %s", CodeOf(outer))
	}
	if inner.Message() != AttributesOf(CodeDecode).Message {
		t.Fatalf("expected default message, got %q", inner.Message())
	}
	if !stdErrors.Is(outer, New(CodeDecode, "other")) {
		t.Fatalf("errors.Is should match on code")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{New(CodeInvalidAddress, ""), http.StatusBadRequest},
		{New(CodeUpstreamStatus, ""), http.StatusBadGateway},
		{New(CodeTimeout, ""), http.StatusGatewayTimeout},
		{New(CodeUnsupported, ""), http.StatusNotImplemented},
		{stdErrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestSeverityOverride(t *testing.T) {
	err := New(CodeNetwork, "", WithSeverity(SeverityCritical), WithRetryable(false))
	if SeverityOf(err) != SeverityCritical {
		t.Fatalf("unexpected severity %s", SeverityOf(err))
	}
	if err.Retryable() {
		t.Fatalf("override should disable retry")
	}
	if SeverityOf(stdErrors.New("x")) != SeverityCritical {
		t.Fatalf("unknown errors should be critical")
	}
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_CUSTOM"
	Register(code, Attributes{Message: "custom", Severity: SeverityInfo, HTTPStatus: http.StatusTeapot})
	if HTTPStatus(New(code, "")) != http.StatusTeapot {
		t.Fatalf("custom status not applied")
	}
}
