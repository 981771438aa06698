package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type nested struct {
	Rate float64 `yaml:"rate" validate:"gte=0"`
}

type sample struct {
	Backend string        `yaml:"backend" validate:"required,oneof=fasthttp nethttp"`
	BaseURL string        `yaml:"base_url" validate:"omitempty,http_url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	Limit   *nested       `yaml:"rate_limit" validate:"omitempty"`
}

func TestValidate_Valid(t *testing.T) {
	s := sample{Backend: "fasthttp", BaseURL: "https://api.example.test", Timeout: time.Second}
	if err := Validate(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ReportsYAMLFieldNames(t *testing.T) {
	s := sample{Backend: "curl", BaseURL: "not a url", Limit: &nested{Rate: -1}}
	err := Validate(s)
	if err == nil {
		t.Fatal("expected error")
	}
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("expected *Error, got %T", err)
	}
	fields := map[string]string{}
	for _, f := range ve.Fields {
		fields[f.Field] = f.Message
	}
	if !strings.HasPrefix(fields["backend"], "must be one of") {
		t.Errorf("backend: unexpected message %q", fields["backend"])
	}
	if fields["base_url"] == "" {
		t.Errorf("expected base_url error, got %v", ve.Fields)
	}
	if fields["rate_limit.rate"] == "" {
		t.Errorf("expected nested rate_limit.rate error, got %v", ve.Fields)
	}
}

func TestValidate_Required(t *testing.T) {
	err := Validate(sample{})
	if err == nil || !strings.Contains(err.Error(), "backend: is required") {
		t.Fatalf("expected backend required, got %v", err)
	}
}

func TestValidator_Programmatic(t *testing.T) {
	v := New()
	v.Required("backend", "").
		OneOf("policy", "strict", "simple", "publicsuffix").
		OneOf("empty", "", "a").
		Min("max_in_flight", 0, 1).
		Check(true, "ok", "never")

	if len(v.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %v", v.Errors())
	}
	err := v.Err()
	if err == nil || !strings.Contains(err.Error(), "policy: must be one of: simple publicsuffix") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidator_StructMerge(t *testing.T) {
	v := New().Struct(sample{Backend: "nethttp"})
	if v.HasErrors() {
		t.Fatalf("unexpected errors: %v", v.Errors())
	}
	v.Struct(sample{})
	if !v.HasErrors() {
		t.Fatal("expected merged struct errors")
	}
	if New().Err() != nil {
		t.Error("expected nil error when nothing failed")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"BaseURL":     "base_u_r_l",
		"MaxInFlight": "max_in_flight",
		"name":        "name",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
