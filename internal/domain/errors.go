package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// secretKeyPattern matches context keys whose values must be redacted
// before an error is logged or rendered, mirroring the original system's
// secret-key heuristic.
var secretKeyPattern = regexp.MustCompile(`(?i)(key|secret|password|token|private|pem|credential)`)

// RedactContext returns a copy of ctx with values under secret-looking
// keys replaced by a fixed marker.
func RedactContext(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if secretKeyPattern.MatchString(k) {
			out[k] = "***REDACTED***"
			continue
		}
		out[k] = v
	}
	return out
}

// BaseError is the closed taxonomy's common shape: a message plus
// structured context, with automatic secret redaction on Error().
type BaseError struct {
	Kind    string
	Message string
	Context map[string]any
}

func (e *BaseError) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	redacted := RedactContext(e.Context)
	parts := make([]string, 0, len(redacted))
	for k, v := range redacted {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

func newBaseError(kind, message string, ctx map[string]any) *BaseError {
	return &BaseError{Kind: kind, Message: message, Context: ctx}
}

// The closed error taxonomy. Every error the trading core raises across
// package boundaries is one of these ten kinds; callers type-switch
// rather than sentinel-compare.

type InputError struct{ *BaseError }

func NewInputError(msg string, ctx map[string]any) error {
	return &InputError{newBaseError("input", msg, ctx)}
}

type StaleDataError struct{ *BaseError }

func NewStaleDataError(msg string, ctx map[string]any) error {
	return &StaleDataError{newBaseError("stale_data", msg, ctx)}
}

type RiskBlock struct{ *BaseError }

func NewRiskBlock(msg string, ctx map[string]any) error {
	return &RiskBlock{newBaseError("risk_block", msg, ctx)}
}

type CooldownActive struct{ *BaseError }

func NewCooldownActive(msg string, ctx map[string]any) error {
	return &CooldownActive{newBaseError("cooldown_active", msg, ctx)}
}

type OrderRejected struct{ *BaseError }

func NewOrderRejected(msg string, ctx map[string]any) error {
	return &OrderRejected{newBaseError("order_rejected", msg, ctx)}
}

type AuthFailure struct{ *BaseError }

func NewAuthFailure(msg string, ctx map[string]any) error {
	return &AuthFailure{newBaseError("auth_failure", msg, ctx)}
}

type RateLimited struct{ *BaseError }

func NewRateLimited(msg string, ctx map[string]any) error {
	return &RateLimited{newBaseError("rate_limited", msg, ctx)}
}

type ApiError struct{ *BaseError }

func NewApiError(msg string, ctx map[string]any) error {
	return &ApiError{newBaseError("api_error", msg, ctx)}
}

type ConnectionFailure struct{ *BaseError }

func NewConnectionFailure(msg string, ctx map[string]any) error {
	return &ConnectionFailure{newBaseError("connection_failure", msg, ctx)}
}

type InsufficientData struct{ *BaseError }

func NewInsufficientData(msg string, ctx map[string]any) error {
	return &InsufficientData{newBaseError("insufficient_data", msg, ctx)}
}
