package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// NodeRecord is the serialized form of one expression-tree node. Operator
// fields hold registry indices, never names; decoding a record only makes
// sense against the registry built from the same run configuration.
type NodeRecord struct {
	Kind     string       `json:"kind"`
	Value    float64      `json:"value,omitempty"`
	Variable int          `json:"variable,omitempty"`
	Op       int          `json:"op,omitempty"`
	Children []NodeRecord `json:"children,omitempty"`
}

type MemberRecord struct {
	Tree       NodeRecord `json:"tree"`
	Loss       float64    `json:"loss"`
	Score      float64    `json:"score"`
	Complexity int        `json:"complexity"`
	Ref        uint64     `json:"ref"`
	Parent     uint64     `json:"parent"`
}

type PopulationRecord struct {
	VersionedRecord
	RunID     string         `json:"run_id"`
	Index     int            `json:"index"`
	Iteration int            `json:"iteration"`
	Members   []MemberRecord `json:"members"`
}

type HallOfFameRecord struct {
	VersionedRecord
	RunID   string         `json:"run_id"`
	MaxSize int            `json:"max_size"`
	Entries []MemberRecord `json:"entries"`
	Exists  []bool         `json:"exists"`
}

// RunSummary keeps the operator sets alongside the outcome so stored
// trees can be decoded and formatted without the original configuration.
type RunSummary struct {
	VersionedRecord
	RunID           string   `json:"run_id"`
	CreatedAtUTC    string   `json:"created_at_utc"`
	Seed            int64    `json:"seed"`
	Populations     int      `json:"populations"`
	Iterations      int      `json:"iterations"`
	Evaluations     uint64   `json:"evaluations"`
	BestLoss        float64  `json:"best_loss"`
	GoalReached     bool     `json:"goal_reached"`
	BinaryOperators []string `json:"binary_operators"`
	UnaryOperators  []string `json:"unary_operators,omitempty"`
	LossFunction    string   `json:"loss_function,omitempty"`
}

type IterationDiagnostics struct {
	Iteration    int     `json:"iteration"`
	BestLoss     float64 `json:"best_loss"`
	MeanLoss     float64 `json:"mean_loss"`
	Evaluations  uint64  `json:"evaluations"`
	FrontierSize int     `json:"frontier_size"`
	LostBatches  int     `json:"lost_batches"`
}

type LineageEventRecord struct {
	Ref        uint64 `json:"ref"`
	Parent     uint64 `json:"parent,omitempty"`
	Kind       string `json:"kind"`
	AtUnixNano int64  `json:"at_unix_nano"`
	Note       string `json:"note,omitempty"`
}
