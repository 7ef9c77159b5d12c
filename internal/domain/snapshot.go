package domain

// RiskSnapshot is one persisted observation of a token's screening result,
// captured after each successful listing refresh.
// Corresponds to risk_snapshots table in PostgreSQL.
type RiskSnapshot struct {
	SnapshotID  string    // PRIMARY KEY, deterministic hash
	TokenID     string    // token id on ODIN.FUN
	Risk        RiskLevel // assigned level at capture time
	HolderCount *int64    // raw holder count (nullable)
	TxnCount    *int64    // raw transaction count (nullable)
	Marketcap   *float64  // raw market cap (nullable)
	VolumeBTC   float64   // 24h volume, BTC
	VolumeUSD   float64   // 24h volume, USD
	CapturedAt  int64     // capture timestamp (ms)
	CreatedAt   int64     // record creation timestamp (ms)
}
