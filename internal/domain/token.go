package domain

// RiskLevel is a coarse severity label assigned to a token by the ordered
// screening rules.
type RiskLevel string

// Risk levels, lowest to highest severity.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RawToken is one record from the ODIN.FUN listing endpoint. Upstream omits
// fields freely, so every field the screening rules read is pointer-typed:
// nil means the field was absent from the payload.
type RawToken struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Ticker      string   `json:"ticker"`
	CreatedTime *string  `json:"created_time"` // RFC3339
	Marketcap   *float64 `json:"marketcap"`
	Price       *float64 `json:"price"` // sats
	Price5m     *float64 `json:"price_5m"`
	Price1h     *float64 `json:"price_1h"`
	Price6h     *float64 `json:"price_6h"`
	HolderCount *int64   `json:"holder_count"`
	TxnCount    *int64   `json:"txn_count"`
	Verified    *bool    `json:"verified"`
	Volume      *float64 `json:"volume"`
	BuyCount    *int64   `json:"buy_count"`
	SellCount   *int64   `json:"sell_count"`
	Featured    *bool    `json:"featured"`
}

// Volume holds 24h trading volume in both units served to the frontend.
type Volume struct {
	BTC float64 `json:"btc"`
	USD float64 `json:"usd"`
}

// Ascended is a placeholder trend indicator carried through for the frontend.
type Ascended struct {
	Percent   float64 `json:"percent"`
	Direction string  `json:"direction"` // "up" | "down"
}

// Narrative is a short placeholder blurb attached to a token, keyed off its
// risk level. Not derived from real signal analysis.
type Narrative struct {
	Title   string   `json:"title"`
	Details []string `json:"details"`
}

// Token is the normalized shape cached and served by the listing API.
// Temporal fields are computed relative to "now" at normalization time and are
// therefore recomputed on every cache refresh, never stored.
type Token struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Ticker         string     `json:"ticker"`
	Address        string     `json:"address"`
	Logo           string     `json:"logo"`
	Age            string     `json:"age"`      // human string, e.g. "2mo", "Unknown"
	AgeValue       int64      `json:"ageValue"` // seconds since creation, for sorting
	Timestamp      int64      `json:"timestamp"` // creation time, Unix ms
	MarketCap      string     `json:"marketCap"` // abbreviated, e.g. "$7.2M", "N/A"
	Sats           float64    `json:"sats"`
	Change5m       string     `json:"change5m"`
	Change1h       string     `json:"change1h"`
	Change6h       string     `json:"change6h"`
	Change24h      string     `json:"change24h"`
	Volume         Volume     `json:"volume"`
	Txns           string     `json:"txns"`
	Ascended       Ascended   `json:"ascended"`
	Risk           RiskLevel  `json:"risk"`
	ContractStatus *string    `json:"contractStatus,omitempty"` // "Verified" | "Unverified"
	Manipulation   *Narrative `json:"marketManipulation,omitempty"`
}
