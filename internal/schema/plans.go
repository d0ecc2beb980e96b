package schema

import "fmt"

// Step action types understood by the execution layer.
const (
	StepNavigate    = "navigate"
	StepScroll      = "scroll"
	StepClick       = "click"
	StepInput       = "input"
	StepInputSelect = "input_select"
	StepHistoryBack = "history_back"
	StepFocus       = "focus"
)

// DefaultTimeoutMS is the per-step timeout when a builder sets none.
const DefaultTimeoutMS = 4000

// ExecutionStep is one atomic UI action against a DOM element.
type ExecutionStep struct {
	StepID     string  `json:"step_id"`
	ActionType string  `json:"action_type"`
	ElementID  string  `json:"element_id,omitempty"`
	Value      string  `json:"value,omitempty"`
	TimeoutMS  int     `json:"timeout_ms"`
	Retries    int     `json:"retries"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
}

// ExecutionPlan is the ordered list of DOM steps for one request.
type ExecutionPlan struct {
	Version string          `json:"schema_version"`
	ID      string          `json:"id"`
	TraceID string          `json:"trace_id,omitempty"`
	Steps   []ExecutionStep `json:"steps"`
}

func NewExecutionPlan(traceID string, steps []ExecutionStep) *ExecutionPlan {
	if steps == nil {
		steps = []ExecutionStep{}
	}
	return &ExecutionPlan{Version: VersionExecutionPlan, ID: NewID(), TraceID: traceID, Steps: steps}
}

func (p *ExecutionPlan) SchemaVersion() string { return VersionExecutionPlan }
func (p *ExecutionPlan) Trace() string         { return p.TraceID }

// AXExecutionStep addresses its element by CDP backend node id. Zero means the
// step needs no element (scroll, navigate, history back).
type AXExecutionStep struct {
	StepID        string  `json:"step_id"`
	ActionType    string  `json:"action_type"`
	BackendNodeID int64   `json:"backend_node_id"`
	Value         string  `json:"value,omitempty"`
	TimeoutMS     int     `json:"timeout_ms"`
	Retries       int     `json:"retries"`
	Confidence    float64 `json:"confidence"`
	Notes         string  `json:"notes,omitempty"`
}

// AXExecutionPlan is the ordered list of accessibility-tree steps for one request.
type AXExecutionPlan struct {
	Version string            `json:"schema_version"`
	ID      string            `json:"id"`
	TraceID string            `json:"trace_id,omitempty"`
	Steps   []AXExecutionStep `json:"steps"`
}

func NewAXExecutionPlan(traceID string, steps []AXExecutionStep) *AXExecutionPlan {
	if steps == nil {
		steps = []AXExecutionStep{}
	}
	return &AXExecutionPlan{Version: VersionExecutionPlan, ID: NewID(), TraceID: traceID, Steps: steps}
}

func (p *AXExecutionPlan) SchemaVersion() string { return VersionExecutionPlan }
func (p *AXExecutionPlan) Trace() string         { return p.TraceID }

// StepID builds a step identifier such as "s_origin_1a2b3c4d".
func StepID(kind string) string {
	return fmt.Sprintf("s_%s_%s", kind, NewID()[:8])
}

// Truncate shortens s to at most n runes, used for step notes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
