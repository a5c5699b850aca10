package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherdesk/tradecore/internal/domain"
)

func TestSettleTradeWin(t *testing.T) {
	trade := Trade{
		City: domain.CityNYC, BracketLabel: "53-54", Side: domain.SideYes,
		PriceCents: 60, Quantity: 2,
	}
	outcome, err := SettleTrade(trade, 53.5, time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.Won)
	assert.Equal(t, domain.StatusWon, outcome.Status)
	assert.Equal(t, domain.Cents(120), outcome.CostCents)
	assert.Equal(t, domain.Cents(200), outcome.PayoutCents)
	assert.Equal(t, domain.Cents(80), outcome.ProfitCents)
	// fee = max(1, floor(40*0.15))*2 = 6*2=12
	assert.Equal(t, domain.Cents(12), outcome.FeeCents)
	assert.Equal(t, domain.Cents(68), outcome.PnLCents)
}

func TestSettleTradeLoss(t *testing.T) {
	trade := Trade{
		City: domain.CityNYC, BracketLabel: "53-54", Side: domain.SideYes,
		PriceCents: 60, Quantity: 2,
	}
	outcome, err := SettleTrade(trade, 60, time.Now())
	require.NoError(t, err)
	assert.False(t, outcome.Won)
	assert.Equal(t, domain.StatusLost, outcome.Status)
	assert.Equal(t, domain.Cents(-120), outcome.PnLCents)
	assert.Equal(t, domain.Cents(0), outcome.FeeCents)
}

func TestSettleTradeNoSideWins(t *testing.T) {
	trade := Trade{
		City: domain.CityNYC, BracketLabel: "53-54", Side: domain.SideNo,
		PriceCents: 60, Quantity: 1,
	}
	outcome, err := SettleTrade(trade, 60, time.Now())
	require.NoError(t, err)
	assert.True(t, outcome.Won)
}

func TestComputePnLMatchesAdjudicator(t *testing.T) {
	pnl, fee, err := ComputePnL(true, 60, domain.SideYes, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(68), pnl)
	assert.Equal(t, domain.Cents(12), fee)
}

func TestGeneratePostmortemNarrativeIncludesOutcome(t *testing.T) {
	trade := Trade{
		City: domain.CityNYC, BracketLabel: "53-54", Side: domain.SideYes,
		PriceCents: 60, Quantity: 1, ModelProbability: 0.7, MarketProbability: 0.6,
		EVAtEntry: 0.04, Confidence: "high",
	}
	outcome := Outcome{Won: true, PnLCents: 34}
	narrative := GeneratePostmortemNarrative(trade, outcome, 53.5, []ForecastPoint{
		{Source: "NWS", ForecastF: 53},
		{Source: "Open-Meteo:GFS", ForecastF: 55},
	})
	assert.Contains(t, narrative, "WIN")
	assert.Contains(t, narrative, "NWS")
}
