package config

import (
	"dario.cat/mergo"

	"github.com/coachpo/marketmaker/internal/strategy/entry"
	"github.com/coachpo/marketmaker/internal/strategy/exit"
	"github.com/coachpo/marketmaker/internal/strategy/marketmaker"
)

// StrategyOptions is the deeply-mergeable option tree for one trading
// agent: a set of global defaults plus per-market overrides. ForMarket
// resolves the effective options for a single market by deep-merging
// Defaults with MarketSettings[market], per-market values winning.
type StrategyOptions struct {
	MinimumTrend      float64                    `yaml:"minimumTrend"`
	MaximumPriceLevel float64                    `yaml:"maximumPriceLevel"`
	FiatRatio         float64                    `yaml:"fiatRatio"`
	MaxDrawdown       float64                    `yaml:"maxDrawdown"`
	Entry             entry.Options              `yaml:"entry"`
	Exit              exit.Options               `yaml:"exit"`
	MarketMaker       marketmaker.Options        `yaml:"marketMaker"`
	MarketSettings    map[string]StrategyOptions `yaml:"marketSettings"`
}

// ForMarket returns the effective StrategyOptions for market: the receiver's
// own fields (the global defaults) with any non-zero field present under
// MarketSettings[market] overriding it. The override's own MarketSettings
// map is not copied into the result; overrides do not nest.
func (o StrategyOptions) ForMarket(market string) (StrategyOptions, error) {
	effective := o
	effective.MarketSettings = nil

	override, ok := o.MarketSettings[market]
	if !ok {
		return effective, nil
	}
	override.MarketSettings = nil

	if err := mergo.Merge(&effective, override, mergo.WithOverride); err != nil {
		return StrategyOptions{}, err
	}
	return effective, nil
}
