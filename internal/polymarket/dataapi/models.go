package dataapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Num is a numeric upstream field with fail-soft decoding: missing, null,
// string-encoded, or outright non-numeric values degrade to zero instead of
// failing the whole row set.
type Num float64

func (n *Num) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Num(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Num(f)
	return nil
}

// Float returns the value as a plain float64.
func (n Num) Float() float64 {
	return float64(n)
}

// Position is one open market exposure for a wallet.
type Position struct {
	ProxyWallet  string `json:"proxyWallet"`
	CurrentValue Num    `json:"currentValue"`
	CashPnl      Num    `json:"cashPnl"`      // unrealized (open) P&L
	RealizedPnl  Num    `json:"realizedPnl"`  // realized P&L from partial closes
}

// ClosedPosition is one fully settled exposure.
type ClosedPosition struct {
	RealizedPnl Num `json:"realizedPnl"`
}

// Trade is a single fill from the /trades endpoint.
type Trade struct {
	ProxyWallet     string `json:"proxyWallet"`
	Side            string `json:"side"` // BUY, SELL
	ConditionID     string `json:"conditionId"`
	Size            Num    `json:"size"`
	Price           Num    `json:"price"`
	Timestamp       int64  `json:"timestamp"` // unix seconds
	Outcome         string `json:"outcome"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	EventSlug       string `json:"eventSlug"`
	TransactionHash string `json:"transactionHash"`
}

// ActivityEvent is a single wallet activity row. UsdcSize is a pointer so a
// missing notional can be told apart from an explicit zero.
type ActivityEvent struct {
	ProxyWallet string `json:"proxyWallet"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
	Type        string `json:"type"`      // TRADE, TRANSFER, ...
	UsdcSize    *Num   `json:"usdcSize"`
	Size        Num    `json:"size"`
	Price       Num    `json:"price"`
	Side        string `json:"side"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	EventSlug   string `json:"eventSlug"`
	Outcome     string `json:"outcome"`
}

// LeaderboardRow is one ranked wallet from the /v1/leaderboard endpoint.
// Pnl is a pointer: a present row with no P&L figure must not shadow the
// locally computed value.
type LeaderboardRow struct {
	ProxyWallet string `json:"proxyWallet"`
	UserName    string `json:"userName"`
	Pnl         *Num   `json:"pnl"`
	Vol         Num    `json:"vol"`
}
