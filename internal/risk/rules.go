// Package risk assigns coarse risk levels to raw tokens.
package risk

import "forseti-scan/internal/domain"

// Thresholds used by the screening rules.
const (
	MinHolders    = 10
	MinTxns       = 20
	MinVolume     = 1_000_000
	MinSideTrades = 5

	SafeHolders = 100
	SafeVolume  = 10_000_000
	SafeTxns    = 100
)

// Assign evaluates the ordered screening rules against a raw token and
// returns exactly one level. First match wins; rule order is part of the
// contract and must not be reordered.
//
// A nil field means the upstream omitted it; the rule reading it does not
// apply and evaluation continues with the next rule. A nil record is high
// risk outright.
func Assign(t *domain.RawToken) domain.RiskLevel {
	if t == nil {
		return domain.RiskHigh
	}

	if t.HolderCount != nil && *t.HolderCount < MinHolders {
		return domain.RiskHigh
	}
	if t.TxnCount != nil && *t.TxnCount < MinTxns {
		return domain.RiskHigh
	}
	if t.Verified != nil && !*t.Verified {
		return domain.RiskHigh
	}
	if t.Volume != nil && *t.Volume < MinVolume {
		return domain.RiskHigh
	}
	if (t.BuyCount != nil && *t.BuyCount < MinSideTrades) ||
		(t.SellCount != nil && *t.SellCount < MinSideTrades) {
		return domain.RiskHigh
	}

	if t.Verified != nil && *t.Verified {
		return domain.RiskLow
	}
	if t.HolderCount != nil && *t.HolderCount > SafeHolders {
		return domain.RiskLow
	}
	if t.Volume != nil && *t.Volume > SafeVolume {
		return domain.RiskLow
	}
	if t.TxnCount != nil && *t.TxnCount > SafeTxns {
		return domain.RiskLow
	}
	if t.Featured != nil && *t.Featured {
		return domain.RiskLow
	}

	return domain.RiskMedium
}
