package domain

// Candle is one bar from the upstream tv_feed endpoint (1-minute resolution).
// Volume is reported in sats.
type Candle struct {
	TokenID  string  `json:"-"`
	DateTime string  `json:"date_time"` // RFC3339
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
}
