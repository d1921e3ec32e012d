package charge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Tier is one bracket of a tiered charge. Max nil means unbounded.
type Tier struct {
	Min    pricing.Money  `json:"min"`
	Max    *pricing.Money `json:"max"`
	Charge TierCharge     `json:"charge"`
}

// Contains reports whether the order value falls inside the bracket.
func (t Tier) Contains(orderValue pricing.Money) bool {
	if orderValue < t.Min {
		return false
	}
	if t.Max != nil && orderValue > *t.Max {
		return false
	}
	return true
}

// TierCharge is the charge value of a tier. Rate sheets express it either as
// a plain number (fixed amount in minor units) or as a percentage string
// such as "5%"; both forms are accepted.
type TierCharge struct {
	PercentBps int32
	Fixed      pricing.Money
}

// Amount resolves the tier charge against the order value.
func (tc TierCharge) Amount(orderValue pricing.Money) pricing.Money {
	if tc.PercentBps > 0 {
		return pricing.PercentOf(orderValue, tc.PercentBps)
	}
	return tc.Fixed
}

// UnmarshalJSON accepts `"5%"` or a bare number.
func (tc *TierCharge) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if !strings.HasSuffix(s, "%") {
			return fmt.Errorf("tier charge string %q must end with %%", s)
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return fmt.Errorf("parse tier charge percent: %w", err)
		}
		if pct < 0 {
			return fmt.Errorf("tier charge percent %q is negative", s)
		}
		tc.PercentBps = int32(pct * 100)
		tc.Fixed = 0
		return nil
	}
	var fixed pricing.Money
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}
	if fixed < 0 {
		return fmt.Errorf("tier charge amount %d is negative", fixed)
	}
	tc.PercentBps = 0
	tc.Fixed = fixed
	return nil
}

// MarshalJSON renders the percentage form back as a string so round-tripped
// configuration keeps its original shape.
func (tc TierCharge) MarshalJSON() ([]byte, error) {
	if tc.PercentBps > 0 {
		return json.Marshal(fmt.Sprintf("%g%%", float64(tc.PercentBps)/100))
	}
	return json.Marshal(tc.Fixed)
}
