package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

type sample struct {
	Name  string `validate:"required"`
	Nav   string `validate:"omitempty,oneof=home favorites"`
	Query string `validate:"max=4"`
}

func TestRequestValidator(t *testing.T) {
	v := &RequestValidator{}

	if err := v.Validate(&sample{Name: "a", Nav: "home"}); err != nil {
		t.Fatalf("expected valid sample, got %v", err)
	}

	tests := []struct {
		name    string
		input   sample
		message string
	}{
		{name: "missing name", input: sample{}, message: "name is required"},
		{name: "unknown nav", input: sample{Name: "a", Nav: "trash"}, message: "nav must be one of: home, favorites"},
		{name: "long query", input: sample{Name: "a", Query: "sunset"}, message: "query must be at most 4 characters"},
		{name: "several fields", input: sample{Nav: "trash"}, message: "name is required; nav must be one of: home, favorites"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.input)
			var httpErr *echo.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected echo.HTTPError, got %v", err)
			}
			if httpErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", httpErr.Code)
			}
			if httpErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, httpErr.Message)
			}
		})
	}
}
