package conduit

import "time"

// Run is the immutable value object identifying one execution. It is
// created before Conduit construction and never mutated by the Conduit.
type Run struct {
	RunID    string
	TargetURL string

	ExtractionSchema   map[string]string
	ExtractionMode     string // "heuristic" | "ai" | "hybrid"
	HeuristicSelectors map[string]string
	ContainerSelector  string // optional: enables list-mode heuristic extraction

	AllowCrossOrigin bool

	AllowedSchemes      []string
	BlockLocalHostnames bool
	BlockPrivateIPs     bool

	MaxRetries             int
	GlobalTimeout          time.Duration
	PageLoadTimeout        time.Duration
	InteractionTimeout     time.Duration
	AITimeout              time.Duration
	BackoffBase            time.Duration
	BackoffMax             time.Duration
	Jitter                 bool
	MinConfidenceThreshold float64

	DebugMode bool
}

// Result is the run-result contract the out-of-scope API layer consumes
// after awaiting Run.
type Result struct {
	RunID        string  `json:"run_id"`
	Status       string  `json:"status"` // "complete" | "failed"
	Phase        string  `json:"phase"`
	RecordsCount int     `json:"records_count"`
	DurationS    float64 `json:"duration_s"`
	AICalls      int     `json:"ai_calls"`
	SignalsCount int     `json:"signals_count"`
}
