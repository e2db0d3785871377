package messaging

// FeatureMessage is the payload dispatched to the scoring pipeline for every
// committed transfer. Features holds exactly five values in fixed order:
// distance from home, distance from last withdrawal, ratio to median amount,
// repeat-counterparty flag, chip-used flag.
type FeatureMessage struct {
	TraceID  string    `json:"trace_id"`
	UserSub  string    `json:"user_sub"`
	Features []float64 `json:"features"`
}

// AlertMessage is published when the classifier flags a transfer.
type AlertMessage struct {
	TraceID     string   `json:"trace_id"`
	UserSub     string   `json:"user_sub"`
	Probability float64  `json:"probability"`
	PushTokens  []string `json:"push_tokens"`
}

const (
	// FeatureGroupKey is the constant ordering key for feature messages. All
	// transfers share one partition so scoring work keeps global order.
	FeatureGroupKey = "trade-group"

	// DedupHeader carries the per-attempt deduplication id.
	DedupHeader = "dedup-id"
)
