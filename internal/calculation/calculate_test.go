package calculation

import "testing"

func TestReduceMarketPending(t *testing.T) {
	cases := []struct {
		price int64
		want  int64
	}{
		{1000, 100},
		{100, 10},
		{95, 10},  // floor rounding favors the canceler's counterparty
		{9, 1},
		{0, 0},
	}
	for _, c := range cases {
		if got := ReduceMarketPending(c.price); got != c.want {
			t.Errorf("ReduceMarketPending(%d) = %d, want %d", c.price, got, c.want)
		}
	}
}

func TestReduceMarketOngoing(t *testing.T) {
	cases := []struct {
		price int64
		want  int64
	}{
		{1000, 200},
		{100, 20},
		{95, 19},
		{0, 0},
	}
	for _, c := range cases {
		if got := ReduceMarketOngoing(c.price); got != c.want {
			t.Errorf("ReduceMarketOngoing(%d) = %d, want %d", c.price, got, c.want)
		}
	}
}

func TestReduceExchangePending(t *testing.T) {
	cases := []struct {
		reputation int64
		balance    int64
		want       int64
	}{
		{100, 1000, 0}, // a perfect score pays nothing
		{95, 1000, 50},
		{90, 1000, 100},
		{40, 1000, 600},
		{90, 0, 0},
	}
	for _, c := range cases {
		if got := ReduceExchangePending(c.reputation, c.balance); got != c.want {
			t.Errorf("ReduceExchangePending(%d, %d) = %d, want %d", c.reputation, c.balance, got, c.want)
		}
	}
}

func TestReduceExchangeOngoing(t *testing.T) {
	cases := []struct {
		reputation int64
		balance    int64
		want       int64
	}{
		{100, 1000, 0},
		{95, 1000, 100},
		{90, 1000, 150},
		{40, 1000, 650},
	}
	for _, c := range cases {
		if got := ReduceExchangeOngoing(c.reputation, c.balance); got != c.want {
			t.Errorf("ReduceExchangeOngoing(%d, %d) = %d, want %d", c.reputation, c.balance, got, c.want)
		}
	}
}

func TestPenaltyNeverExceedsBalance(t *testing.T) {
	for rep := int64(40); rep <= 100; rep += 7 {
		for _, balance := range []int64{0, 1, 99, 1000, 123456} {
			if p := ReduceExchangePending(rep, balance); p < 0 || p > balance {
				t.Errorf("ReduceExchangePending(%d, %d) = %d out of range", rep, balance, p)
			}
			if p := ReduceExchangeOngoing(rep, balance); p < 0 || p > balance {
				t.Errorf("ReduceExchangeOngoing(%d, %d) = %d out of range", rep, balance, p)
			}
		}
	}
}
