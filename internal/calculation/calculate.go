// Package calculation holds the pure settlement math for cancellation
// penalties. Functions are deterministic over their arguments and do no I/O.
package calculation

// ReduceMarketPending returns the penalty deducted from the canceling party
// of a market/auction transaction still in PENDING: 10% of the price,
// floor-rounded in the party's favor.
func ReduceMarketPending(price int64) int64 {
	return price - price*90/100
}

// ReduceMarketOngoing is the ONGOING-stage variant: 20%, steeper because the
// cancellation happened later in the lifecycle.
func ReduceMarketOngoing(price int64) int64 {
	return price - price*80/100
}

// ReduceExchangePending computes the barter cancellation penalty while
// PENDING. Barter has no fixed price to anchor on, so the penalty scales
// with the canceler's reputation: every point below 100 costs one percent of
// the balance, and a perfect score pays nothing.
func ReduceExchangePending(reputation, balance int64) int64 {
	if reputation == 100 {
		return 0
	}
	pct := 100 - reputation
	if pct < 0 {
		pct = 0
	}
	return balance - balance*(100-pct)/100
}

// ReduceExchangeOngoing is the ONGOING-stage variant: a flat extra 5
// percentage points on top of the pending rate.
func ReduceExchangeOngoing(reputation, balance int64) int64 {
	if reputation == 100 {
		return 0
	}
	pct := 100 - reputation + 5
	if pct > 100 {
		pct = 100
	}
	return balance - balance*(100-pct)/100
}
