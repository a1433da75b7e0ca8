package worker

// TopicTabActivity carries best-effort indexing lifecycle events. Consumers
// feed them into the tab history; losing events is acceptable.
const TopicTabActivity = "tabs.activity"

const (
	ActionIndexed = "indexed"
	ActionRemoved = "removed"
)

type TabActivityPayload struct {
	Action        string `json:"action"`
	TabID         string `json:"tab_id"`
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	ChunkCount    int    `json:"chunk_count,omitempty"`
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
