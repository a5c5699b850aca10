package domain

// TakerFeeRate is the exchange's taker fee, applied to the winning
// profit of a contract, not to its cost.
const TakerFeeRate = 0.15

// MinFeeCents is the floor applied to any nonzero fee computation.
const MinFeeCents Cents = 1

// EstimateFeeCents computes the fee owed on a single contract at the
// given YES price and side, charged against the profit-if-win rather
// than the cost: fee = max(1, floor(profit_if_win * 0.15)).
func EstimateFeeCents(priceCents Cents, side Side) (Cents, error) {
	if err := ValidatePriceCents(priceCents); err != nil {
		return 0, err
	}
	if !side.Valid() {
		return 0, NewInputError("side must be yes or no", map[string]any{"side": side})
	}
	var profitIfWin Cents
	if side == SideYes {
		profitIfWin = 100 - priceCents
	} else {
		profitIfWin = priceCents
	}
	fee := Cents(float64(profitIfWin) * TakerFeeRate)
	if fee < MinFeeCents {
		fee = MinFeeCents
	}
	return fee, nil
}
