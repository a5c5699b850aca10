package scanner

import (
	"github.com/weatherdesk/tradecore/internal/domain"
)

// KellySettings configures the fractional-Kelly position sizer.
type KellySettings struct {
	UseKellySizing         bool
	KellyFraction          float64 // e.g. 0.25 for quarter-Kelly
	MaxBankrollPctPerTrade float64 // e.g. 0.05
	MaxContractsPerTrade   int
}

// KellyResult is the sizer's output plus the intermediate values and
// cap-application trail needed for audit/postmortem.
type KellyResult struct {
	RawKellyFraction      float64
	AdjustedKellyFraction float64
	OptimalQuantity       int
	CostCents             domain.Cents
	EdgeCents             float64
	Reasons               []string
}

// CalculateKellyFraction computes the raw (unscaled) Kelly fraction for
// a single contract at priceCents on side, given the model's
// probability that the bracket settles YES. Returns 0 if the fee
// consumes the whole profit-if-win, and a non-positive value whenever
// the trade has no net-positive edge after fees.
func CalculateKellyFraction(modelProb float64, priceCents domain.Cents, side domain.Side, feeRate float64) (float64, error) {
	if err := domain.ValidateProbability(domain.Probability(modelProb)); err != nil {
		return 0, err
	}
	if err := domain.ValidatePriceCents(priceCents); err != nil {
		return 0, err
	}

	var cost, profitIfWin domain.Cents
	var probWin float64
	if side == domain.SideYes {
		cost = priceCents
		profitIfWin = 100 - priceCents
		probWin = modelProb
	} else {
		cost = 100 - priceCents
		profitIfWin = priceCents
		probWin = 1 - modelProb
	}

	feeIfWin := domain.Cents(float64(profitIfWin) * feeRate)
	if feeIfWin < 1 {
		feeIfWin = 1
	}
	netProfit := float64(profitIfWin - feeIfWin)
	if netProfit <= 0 {
		return 0, nil
	}

	q := 1 - probWin
	kelly := (probWin*netProfit - q*float64(cost)) / netProfit
	return kelly, nil
}

// CalculateKellySize applies fractional Kelly scaling and five ordered
// safety steps to arrive at a final contract quantity (the raw quantity
// is the KellyFraction-scaled bet on bankroll divided by cost per
// contract):
//  1. non-positive raw Kelly -> quantity 0
//  2. cap at MaxContractsPerTrade
//  3. cap at MaxBankrollPctPerTrade of bankroll
//  4. cap at the risk manager's max single-trade size
//  5. floor to a minimum quantity of 1
//
// If UseKellySizing is false, sizing is skipped entirely and a flat
// quantity of 1 is returned.
func CalculateKellySize(modelProb float64, priceCents domain.Cents, side domain.Side, bankrollCents domain.Cents, maxTradeSizeCents domain.Cents, settings KellySettings) (KellyResult, error) {
	if !settings.UseKellySizing {
		return KellyResult{OptimalQuantity: 1, Reasons: []string{"kelly sizing disabled, flat quantity"}}, nil
	}

	rawKelly, err := CalculateKellyFraction(modelProb, priceCents, side, domain.TakerFeeRate)
	if err != nil {
		return KellyResult{}, err
	}

	if rawKelly <= 0 {
		return KellyResult{RawKellyFraction: rawKelly, OptimalQuantity: 0, Reasons: []string{"raw kelly fraction non-positive"}}, nil
	}

	adjusted := rawKelly * settings.KellyFraction
	optimalBetCents := adjusted * float64(bankrollCents)

	costPerContract := priceCents
	if side == domain.SideNo {
		costPerContract = 100 - priceCents
	}
	if costPerContract <= 0 {
		return KellyResult{}, domain.NewInputError("cost per contract must be positive", nil)
	}

	feeCents, err := domain.EstimateFeeCents(priceCents, side)
	if err != nil {
		return KellyResult{}, err
	}
	netPayout := 100 - feeCents
	var edgeCents float64
	if side == domain.SideYes {
		edgeCents = modelProb*float64(netPayout) - float64(costPerContract)
	} else {
		edgeCents = (1-modelProb)*float64(netPayout) - float64(costPerContract)
	}

	quantity := int(optimalBetCents / float64(costPerContract))
	reasons := []string{}

	if quantity > settings.MaxContractsPerTrade {
		quantity = settings.MaxContractsPerTrade
		reasons = append(reasons, "capped by max_contracts_per_trade")
	}

	maxFromBankroll := int(float64(bankrollCents) * settings.MaxBankrollPctPerTrade / float64(costPerContract))
	if quantity > maxFromBankroll {
		quantity = maxFromBankroll
		reasons = append(reasons, "capped by max_bankroll_pct_per_trade")
	}

	maxFromRisk := int(float64(maxTradeSizeCents) / float64(costPerContract))
	if quantity > maxFromRisk {
		quantity = maxFromRisk
		reasons = append(reasons, "capped by max_trade_size_cents")
	}

	if quantity < 1 {
		quantity = 1
		reasons = append(reasons, "floored to minimum quantity of 1")
	}

	return KellyResult{
		RawKellyFraction:      rawKelly,
		AdjustedKellyFraction: adjusted,
		OptimalQuantity:       quantity,
		CostCents:             domain.Cents(quantity) * costPerContract,
		EdgeCents:             edgeCents,
		Reasons:               reasons,
	}, nil
}
