package ensemble

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// fallbackErrorStd is the per-city, per-season standard deviation of
// forecast error (actual minus forecast, in Fahrenheit) used when
// historical settlement data is too sparse to compute an empirical
// value. Coastal/humid cities with more stable synoptic patterns get
// tighter fallbacks than continental cities with volatile winters.
var fallbackErrorStd = map[domain.City]map[domain.Season]float64{
	domain.CityNYC: {domain.SeasonWinter: 3.0, domain.SeasonSpring: 2.5, domain.SeasonSummer: 1.8, domain.SeasonFall: 2.3},
	domain.CityCHI: {domain.SeasonWinter: 3.5, domain.SeasonSpring: 3.0, domain.SeasonSummer: 2.0, domain.SeasonFall: 2.5},
	domain.CityMIA: {domain.SeasonWinter: 1.5, domain.SeasonSpring: 1.8, domain.SeasonSummer: 2.0, domain.SeasonFall: 1.8},
	domain.CityAUS: {domain.SeasonWinter: 2.5, domain.SeasonSpring: 2.8, domain.SeasonSummer: 2.0, domain.SeasonFall: 2.3},
}

const (
	defaultFallbackErrorStd = 2.5
	minErrorStdSamples      = 30
)

// ErrorHistoryStore supplies historical (actual - forecast) residuals
// for a city/season so the error distribution can be estimated
// empirically once enough settled data exists.
type ErrorHistoryStore interface {
	ForecastErrors(ctx context.Context, city domain.City, season domain.Season) ([]float64, error)
}

// CalculateErrorStd returns the standard deviation of forecast error in
// Fahrenheit for the given city/month, preferring an empirical estimate
// from at least minErrorStdSamples historical residuals and otherwise
// falling back to the fixed per-city/season table.
func CalculateErrorStd(ctx context.Context, store ErrorHistoryStore, city domain.City, month int) (float64, error) {
	season := domain.SeasonForMonth(month)

	if store != nil {
		errors, err := store.ForecastErrors(ctx, city, season)
		if err == nil && len(errors) >= minErrorStdSamples {
			return stat.StdDev(errors, nil), nil
		}
	}

	if byCity, ok := fallbackErrorStd[city]; ok {
		if v, ok := byCity[season]; ok {
			return v, nil
		}
	}
	return defaultFallbackErrorStd, nil
}
