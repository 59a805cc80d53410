// Package budget accounts per-lane resource consumption against a
// configured ceiling (spec.md §3 "Budget config", §4.4 "Propose").
package budget

import (
	"fmt"

	"github.com/vexd/vexd/pkg/types"
	"github.com/vexd/vexd/pkg/vexerrors"
)

// Usage reports a lane's accumulated cost against its configured limits,
// as a fraction in [0, 1] (or more, if already over) per limit name.
type Usage map[string]float64

// Check adds proposed on top of accumulated and returns an error wrapping
// vexerrors.ErrBudgetExceeded if any configured limit would be exceeded.
// When within cfg.AlertThreshold of a limit, it returns (usage, nil) but
// callers are expected to log a warning using the returned Usage.
func Check(cfg types.BudgetConfig, accumulated, proposed types.CostRecord) (Usage, error) {
	total := accumulated.Add(proposed)
	usage := Usage{}

	type limit struct {
		name    string
		max     *int64
		current int64
	}
	limits := []limit{
		{"max_tokens_in", cfg.MaxTokensIn, total.TokensIn},
		{"max_tokens_out", cfg.MaxTokensOut, total.TokensOut},
		{"max_api_calls", cfg.MaxAPICalls, total.APICalls},
		{"max_wall_time_ms", cfg.MaxWallTimeMS, int64(total.WallTimeMS)},
	}

	for _, l := range limits {
		if l.max == nil || *l.max <= 0 {
			continue
		}
		pct := float64(l.current) / float64(*l.max)
		usage[l.name] = pct
		if l.current > *l.max {
			return usage, fmt.Errorf("%w: %s would reach %d, limit is %d", vexerrors.ErrBudgetExceeded, l.name, l.current, *l.max)
		}
	}
	return usage, nil
}

// AlertThreshold reports whether any usage fraction has crossed the
// configured alert threshold (a value in (0, 1]); zero disables alerting.
func AlertThreshold(cfg types.BudgetConfig, usage Usage) []string {
	if cfg.AlertThreshold <= 0 {
		return nil
	}
	var crossed []string
	for name, pct := range usage {
		if pct >= cfg.AlertThreshold {
			crossed = append(crossed, name)
		}
	}
	return crossed
}
