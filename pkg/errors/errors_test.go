package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, detailsOK: true},
		{code: CodeUnauthorized},
		{code: CodeForbidden},
		{code: CodeNotFound},
		{code: CodeConflict},
		{code: CodeStateConflict, detailsOK: true},
		{code: CodeInternal, retryable: true},
		{code: CodeDependency, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	if MetadataFor("SOMETHING_UNKNOWN") != MetadataFor(CodeInternal) {
		t.Fatal("expected unknown code to fall back to internal metadata")
	}
}

func TestCodeForStatus(t *testing.T) {
	cases := map[int]Code{
		http.StatusUnauthorized:        CodeUnauthorized,
		http.StatusForbidden:           CodeUnauthorized,
		http.StatusNotFound:            CodeNotFound,
		http.StatusConflict:            CodeConflict,
		http.StatusBadRequest:          CodeValidation,
		http.StatusInternalServerError: CodeDependency,
		http.StatusBadGateway:          CodeDependency,
	}
	for status, want := range cases {
		if got := CodeForStatus(status); got != want {
			t.Fatalf("status %d: expected %s got %s", status, want, got)
		}
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	cause := stdErrors.New("dial tcp: refused")
	wrapped := Wrap(CodeDependency, cause, "create order")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("expected wrapped error to unwrap to cause")
	}
	if Wrap(CodeDependency, nil, "x").Unwrap() != nil {
		t.Fatal("nil cause should produce a plain error")
	}
}

func TestAsAndIsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeUnauthorized, "token missing"))
	if typed := As(err); typed == nil || typed.Code() != CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", typed)
	}
	if !Is(err, CodeUnauthorized) || Is(err, CodeValidation) {
		t.Fatal("Is reported the wrong code")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain errors should not convert")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(CodeValidation, "shipping name is required")); got != "shipping name is required" {
		t.Fatalf("validation should surface its own message, got %q", got)
	}
	if got := UserMessage(Wrap(CodeDependency, stdErrors.New("status 502"), "create order")); got != MetadataFor(CodeDependency).PublicMessage {
		t.Fatalf("dependency should use the public message, got %q", got)
	}
	if got := UserMessage(New(CodeUnauthorized, "no token")); got != MetadataFor(CodeUnauthorized).PublicMessage {
		t.Fatalf("unauthorized should ask for sign-in, got %q", got)
	}
	if got := UserMessage(stdErrors.New("boom")); got != MetadataFor(CodeInternal).PublicMessage {
		t.Fatalf("untyped errors should be generic, got %q", got)
	}
	if UserMessage(nil) != "" {
		t.Fatal("nil error should have no message")
	}
}
