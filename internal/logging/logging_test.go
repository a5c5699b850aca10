package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRedactMasksSecretLookingKeys(t *testing.T) {
	tests := []struct {
		key      string
		redacted bool
	}{
		{"kalshi_api_key_id", true},
		{"kalshi_priv_key_path", true},
		{"auth_token", true},
		{"password", true},
		{"private_pem", true},
		{"city", false},
		{"dry_run", false},
	}

	for _, tt := range tests {
		got := Redact(tt.key, "NYC")
		if tt.redacted && got != "***REDACTED***" {
			t.Errorf("Redact(%q, ...) = %v, want redacted", tt.key, got)
		}
		if !tt.redacted && got != "NYC" {
			t.Errorf("Redact(%q, ...) = %v, want passthrough", tt.key, got)
		}
	}
}

func TestRedactMapLeavesNonSecretFieldsUntouched(t *testing.T) {
	in := map[string]any{
		"kalshi_api_key_id": "abc-123",
		"city":              "CHI",
		"cycle_interval":    300,
	}
	out := RedactMap(in)

	if out["kalshi_api_key_id"] != "***REDACTED***" {
		t.Errorf("kalshi_api_key_id = %v, want redacted", out["kalshi_api_key_id"])
	}
	if out["city"] != "CHI" {
		t.Errorf("city = %v, want untouched", out["city"])
	}
	if out["cycle_interval"] != 300 {
		t.Errorf("cycle_interval = %v, want untouched", out["cycle_interval"])
	}
}

func TestRedactMapNilIsNil(t *testing.T) {
	if RedactMap(nil) != nil {
		t.Errorf("RedactMap(nil) should stay nil")
	}
}

func TestWithFieldsRedactsBeforeWritingToSink(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(false, &buf)

	WithFields(logger.Info(), map[string]any{
		"kalshi_priv_key_path": "/secrets/kalshi.pem",
		"kalshi_env":           "prod",
	}).Msg("tradecore starting")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if decoded["kalshi_priv_key_path"] != "***REDACTED***" {
		t.Errorf("kalshi_priv_key_path leaked into log line: %v", decoded["kalshi_priv_key_path"])
	}
	if decoded["kalshi_env"] != "prod" {
		t.Errorf("kalshi_env = %v, want untouched", decoded["kalshi_env"])
	}
}
