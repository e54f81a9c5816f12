package analysis

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/model"
)

// Summary is a run-level digest of a backtest result, used for reporting and
// for comparing runs.
type Summary struct {
	StartUTC time.Time
	EndUTC   time.Time
	Periods  int

	TotalPnL    float64
	MaxDrawdown float64

	// HitRate is the share of non-flat periods with positive PnL.
	// NaN when the strategy never took a position.
	HitRate float64

	P05PnL float64
	P95PnL float64

	// OracleProfit is the PnL of perfect foresight over the same prices with
	// unit positions: the sum of absolute next-period moves. It upper-bounds
	// TotalPnL for any strategy restricted to {-1, 0, +1}.
	OracleProfit float64

	// CaptureRatio is TotalPnL / OracleProfit, NaN when OracleProfit is zero.
	CaptureRatio float64
}

// Summarize digests res. prices are the matrix prices the run was simulated
// over (one more than the number of realised periods); passing nil derives
// the oracle profit from the ledger instead.
func Summarize(res *backtest.Result, prices []float64) Summary {
	s := Summary{HitRate: math.NaN(), CaptureRatio: math.NaN()}
	if res == nil || len(res.PnL) == 0 {
		return s
	}
	s.Periods = len(res.PnL)
	s.StartUTC = res.PnL[0].Timestamp
	s.EndUTC = res.PnL[len(res.PnL)-1].Timestamp

	pnl := res.PnLValues()
	for _, v := range pnl {
		s.TotalPnL += v
	}
	s.MaxDrawdown = maxDrawdown(res.EquityValues())

	hits, active := 0, 0
	for i, p := range res.Positions {
		if p == model.Flat {
			continue
		}
		active++
		if pnl[i] > 0 {
			hits++
		}
	}
	if active > 0 {
		s.HitRate = float64(hits) / float64(active)
	}

	sorted := append([]float64(nil), pnl...)
	sort.Float64s(sorted)
	s.P05PnL = percentileSorted(sorted, 0.05)
	s.P95PnL = percentileSorted(sorted, 0.95)

	if prices == nil {
		prices = ledgerPrices(res.Ledger)
	}
	s.OracleProfit = oracleProfit(prices)
	if s.OracleProfit > 0 {
		s.CaptureRatio = s.TotalPnL / s.OracleProfit
	}
	return s
}

// MarshalJSON writes undefined ratios as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartUTC     time.Time `json:"start_utc"`
		EndUTC       time.Time `json:"end_utc"`
		Periods      int       `json:"periods"`
		TotalPnL     float64   `json:"total_pnl"`
		MaxDrawdown  float64   `json:"max_drawdown"`
		HitRate      *float64  `json:"hit_rate"`
		P05PnL       float64   `json:"p05_pnl"`
		P95PnL       float64   `json:"p95_pnl"`
		OracleProfit float64   `json:"oracle_profit"`
		CaptureRatio *float64  `json:"capture_ratio"`
	}{
		StartUTC:     s.StartUTC,
		EndUTC:       s.EndUTC,
		Periods:      s.Periods,
		TotalPnL:     s.TotalPnL,
		MaxDrawdown:  s.MaxDrawdown,
		HitRate:      finite(s.HitRate),
		P05PnL:       s.P05PnL,
		P95PnL:       s.P95PnL,
		OracleProfit: s.OracleProfit,
		CaptureRatio: finite(s.CaptureRatio),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// maxDrawdown is the largest peak-to-trough fall of the equity curve,
// measured from a starting equity of zero. Always >= 0.
func maxDrawdown(equity []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > worst {
			worst = dd
		}
	}
	return worst
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func oracleProfit(prices []float64) float64 {
	total := 0.0
	for t := 0; t+1 < len(prices); t++ {
		total += math.Abs(prices[t+1] - prices[t])
	}
	return total
}

func ledgerPrices(rows []backtest.LedgerRow) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)+1)
	for _, r := range rows {
		out = append(out, r.Price)
	}
	return append(out, rows[len(rows)-1].NextPrice)
}
