package domain

// FeeMode selects how the platform fee is computed.
type FeeMode string

const (
	FeeModeFixed   FeeMode = "fixed"
	FeeModePercent FeeMode = "percent"
)

// FeeModel is the platform fee configuration, owned by the configuration
// collaborator and read-only to the ledger computation.
type FeeModel struct {
	Mode   FeeMode `json:"mode"`
	Amount int64   `json:"amount"` // Flat fee for FeeModeFixed
	Rate   float64 `json:"rate"`   // Fraction of total_received for FeeModePercent
	Floor  int64   `json:"floor"`  // Minimum fee for FeeModePercent
}
