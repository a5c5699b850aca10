package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePriceCentsBoundaries(t *testing.T) {
	assert.NoError(t, ValidatePriceCents(1))
	assert.NoError(t, ValidatePriceCents(99))
	assert.Error(t, ValidatePriceCents(0))
	assert.Error(t, ValidatePriceCents(100))
}

func TestValidateProbabilityBoundaries(t *testing.T) {
	assert.NoError(t, ValidateProbability(0.0))
	assert.NoError(t, ValidateProbability(1.0))
	assert.Error(t, ValidateProbability(-0.01))
	assert.Error(t, ValidateProbability(1.01))
}

func TestSideCostCents(t *testing.T) {
	assert.Equal(t, Cents(60), SideYes.CostCents(60))
	assert.Equal(t, Cents(40), SideNo.CostCents(60))
}

func TestEstimateFeeCentsYes(t *testing.T) {
	fee, err := EstimateFeeCents(60, SideYes)
	require.NoError(t, err)
	// profit_if_win = 40, fee = floor(40*0.15) = 6
	assert.Equal(t, Cents(6), fee)
}

func TestEstimateFeeCentsMinimumOneCent(t *testing.T) {
	fee, err := EstimateFeeCents(97, SideYes)
	require.NoError(t, err)
	// profit_if_win = 3, floor(3*0.15) = 0, floored up to 1
	assert.Equal(t, Cents(1), fee)
}

func TestParseBracketLabelBottom(t *testing.T) {
	b, err := ParseBracketLabel("<=52F")
	require.NoError(t, err)
	assert.True(t, b.Bottom)
	assert.Equal(t, 52.0, b.Upper)
	assert.True(t, b.Contains(52))
	assert.False(t, b.Contains(52.1))
}

func TestParseBracketLabelTop(t *testing.T) {
	b, err := ParseBracketLabel(">=90°")
	require.NoError(t, err)
	assert.True(t, b.Top)
	assert.Equal(t, 90.0, b.Lower)
	assert.True(t, b.Contains(90))
	assert.False(t, b.Contains(89.9))
}

func TestParseBracketLabelInterval(t *testing.T) {
	b, err := ParseBracketLabel("53-54F")
	require.NoError(t, err)
	assert.Equal(t, 53.0, b.Lower)
	assert.Equal(t, 54.0, b.Upper)
	assert.True(t, b.Contains(53))
	assert.True(t, b.Contains(54))
	assert.False(t, b.Contains(52.9))
	assert.False(t, b.Contains(54.1))
}

func TestDidBracketWinYesNo(t *testing.T) {
	won, err := DidBracketWin("53-54F", 53.5, SideYes)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = DidBracketWin("53-54F", 53.5, SideNo)
	require.NoError(t, err)
	assert.False(t, won)

	won, err = DidBracketWin("53-54F", 60, SideNo)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedactContextMasksSecrets(t *testing.T) {
	ctx := map[string]any{
		"api_key":  "abc123",
		"ticker":   "NYC-53-54",
		"password": "hunter2",
	}
	out := RedactContext(ctx)
	assert.Equal(t, "***REDACTED***", out["api_key"])
	assert.Equal(t, "***REDACTED***", out["password"])
	assert.Equal(t, "NYC-53-54", out["ticker"])
}

func TestEndOfTradingDayStableWithinDay(t *testing.T) {
	// EndOfTradingDay is stable across calls on the same day regardless
	// of intervening wall-clock advances within the day, and two times on
	// the same day are not a new trading day. The "win does not clear the
	// per-loss timer" rule is tested in the risk package.
	now := time.Date(2026, 7, 29, 10, 0, 0, 0, ET)
	later := time.Date(2026, 7, 29, 14, 0, 0, 0, ET)
	assert.Equal(t, EndOfTradingDay(now), EndOfTradingDay(later))
	assert.False(t, IsNewTradingDay(now, later))
}

func TestIsNewTradingDayCrossesMidnight(t *testing.T) {
	a := time.Date(2026, 7, 29, 23, 59, 0, 0, ET)
	b := time.Date(2026, 7, 30, 0, 1, 0, 0, ET)
	assert.True(t, IsNewTradingDay(a, b))
}
