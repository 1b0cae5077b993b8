package bitstamp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// apiDatetimeLayout is the exchange's datetime format. Fractional seconds
// appear inconsistently and are dropped.
const apiDatetimeLayout = "2006-01-02 15:04:05"

// APITime decodes the exchange's `"2013-03-26 18:49:13"` datetime strings.
type APITime struct {
	time.Time
}

func (t *APITime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if i := strings.LastIndex(s, "."); i > 0 {
		s = s[:i]
	}
	parsed, err := time.Parse(apiDatetimeLayout, s)
	if err != nil {
		return fmt.Errorf("parse datetime %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// UnixTime decodes the exchange's string-encoded unix timestamps.
type UnixTime struct {
	time.Time
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

// Ticker is the /ticker/ response.
type Ticker struct {
	Timestamp UnixTime        `json:"timestamp"`
	Last      decimal.Decimal `json:"last"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	VWAP      decimal.Decimal `json:"vwap"`
	Volume    decimal.Decimal `json:"volume"`
}

// Balance is the /balance/ response.
type Balance struct {
	Fee          decimal.Decimal `json:"fee"`
	USDBalance   decimal.Decimal `json:"usd_balance"`
	BTCBalance   decimal.Decimal `json:"btc_balance"`
	USDReserved  decimal.Decimal `json:"usd_reserved"`
	BTCReserved  decimal.Decimal `json:"btc_reserved"`
	USDAvailable decimal.Decimal `json:"usd_available"`
	BTCAvailable decimal.Decimal `json:"btc_available"`
}

// Order is an open or freshly placed order as the exchange reports it.
type Order struct {
	ID       int64           `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Type     int             `json:"type"`
	Datetime APITime         `json:"datetime"`
}

// Transaction is one entry of the /user_transactions/ feed.
type Transaction struct {
	ID       int64           `json:"id"`
	Datetime APITime         `json:"datetime"`
	Type     int             `json:"type"`
	USD      decimal.Decimal `json:"usd"`
	BTC      decimal.Decimal `json:"btc"`
	Fee      decimal.Decimal `json:"fee"`
	BTCUSD   decimal.Decimal `json:"btc_usd"`
	OrderID  *int64          `json:"order_id"`
}
