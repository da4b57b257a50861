package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPublicMessage_UsesSafeMessage(t *testing.T) {
	sentinel := errors.New("SECRET_VALUE")
	err := New(KindAuth, "safe auth error", sentinel)
	if got := PublicMessage(err); got != "safe auth error" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "safe auth error")
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped cause to be retained for internal matching")
	}
}

func TestKindOfAndRetryable(t *testing.T) {
	err := New(KindRateLimit, "", errors.New("boom"))
	kind, ok := KindOf(err)
	if !ok || kind != KindRateLimit {
		t.Fatalf("KindOf() = (%q, %v), want (%q, true)", kind, ok, KindRateLimit)
	}
	if !IsRetryable(err) {
		t.Fatalf("expected rate_limit error to be retryable")
	}
}

func TestFatalKindsAreNotRetryable(t *testing.T) {
	for _, err := range []error{
		Config("bad cache", nil),
		Invoker("", errors.New("exit status 1")),
		Consistency("missing translated segment at index 2"),
	} {
		if IsRetryable(err) {
			t.Fatalf("%v should not be retryable", err)
		}
	}
}

func TestIs_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("docs/a.md: %w", Invoker("", nil))
	if !Is(err, KindInvoker) {
		t.Fatalf("expected invoker kind through fmt wrapping")
	}
	if Is(err, KindConfig) {
		t.Fatalf("unexpected config kind")
	}
	if got := PublicMessage(err); got != "Translation command failed." {
		t.Fatalf("PublicMessage() = %q", got)
	}
}

func TestPublicMessage_NonAppError(t *testing.T) {
	err := errors.New("plain")
	if got := PublicMessage(err); got != "plain" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "plain")
	}
}
