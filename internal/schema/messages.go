package schema

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Schema version literals carried by every payload.
const (
	VersionActionPlan    = "actionplan_v1"
	VersionClarification = "clarification_v1"
	VersionExecutionPlan = "executionplan_v1"
	VersionTranscript    = "stt_v1"
	VersionNavigator     = "navigator_v1"
	VersionPipeline      = "pipeline_v1"
	VersionDOMMap        = "dommap_v1"
	VersionAXTree        = "axtree_v1"
)

// Message is implemented by every payload exchanged between pipeline stages.
type Message interface {
	SchemaVersion() string
	Trace() string
}

// Reason is the machine-readable cause attached to a ClarificationRequest.
type Reason string

const (
	ReasonMissingQuery        Reason = "missing_query"
	ReasonMissingEntities     Reason = "missing_entities"
	ReasonAmbiguousIntent     Reason = "ambiguous_intent"
	ReasonNoCandidates        Reason = "no_candidates"
	ReasonLowConfidenceTarget Reason = "low_confidence_target"
	ReasonUnsupportedAction   Reason = "unsupported_action"
	ReasonMissingSite         Reason = "missing_site"
	ReasonMissingPageURL      Reason = "missing_page_url"
	ReasonMissingDate         Reason = "missing_date"
	ReasonMissingDateInURL    Reason = "missing_date_in_url"

	// Used by the DOM planner only.
	ReasonMissingSearchBox Reason = "missing_search_box"
	ReasonNoClickTarget    Reason = "no_click_target"
)

// NewID returns a fresh random identifier for messages and traces.
func NewID() string {
	return uuid.NewString()
}

// ActionPlan is the interpreter's structured reading of one utterance.
type ActionPlan struct {
	Version          string   `json:"schema_version"`
	ID               string   `json:"id"`
	TraceID          string   `json:"trace_id,omitempty"`
	Action           string   `json:"action"`
	Target           string   `json:"target,omitempty"`
	Value            string   `json:"value,omitempty"`
	Entities         Entities `json:"entities"`
	Confidence       float64  `json:"confidence"`
	RequiredFollowup []string `json:"required_followup"`
}

// NewActionPlan builds a plan with a fresh id and a non-nil entity map.
func NewActionPlan(traceID, action string, entities Entities, confidence float64) *ActionPlan {
	if entities == nil {
		entities = Entities{}
	}
	return &ActionPlan{
		Version:          VersionActionPlan,
		ID:               NewID(),
		TraceID:          traceID,
		Action:           action,
		Entities:         entities,
		Confidence:       confidence,
		RequiredFollowup: []string{},
	}
}

func (p *ActionPlan) SchemaVersion() string { return VersionActionPlan }
func (p *ActionPlan) Trace() string         { return p.TraceID }

func (p *ActionPlan) UnmarshalJSON(data []byte) error {
	type alias ActionPlan
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ActionPlan(raw)
	p.Version = VersionActionPlan
	if p.Entities == nil {
		p.Entities = Entities{}
	}
	if p.RequiredFollowup == nil {
		p.RequiredFollowup = []string{}
	}
	return nil
}

// ClarificationOption is one answer the user may pick.
type ClarificationOption struct {
	Label               string   `json:"label"`
	CandidateElementIDs []string `json:"candidate_element_ids"`
}

// ClarificationRequest is the terminal "ask the user" output.
type ClarificationRequest struct {
	Version  string                `json:"schema_version"`
	ID       string                `json:"id"`
	TraceID  string                `json:"trace_id,omitempty"`
	Question string                `json:"question"`
	Options  []ClarificationOption `json:"options"`
	Reason   Reason                `json:"reason,omitempty"`
}

// NewClarification builds a clarification whose options carry the given labels.
func NewClarification(traceID, question string, reason Reason, labels ...string) *ClarificationRequest {
	options := make([]ClarificationOption, 0, len(labels))
	for _, l := range labels {
		options = append(options, ClarificationOption{Label: l, CandidateElementIDs: []string{}})
	}
	return &ClarificationRequest{
		Version:  VersionClarification,
		ID:       NewID(),
		TraceID:  traceID,
		Question: question,
		Options:  options,
		Reason:   reason,
	}
}

func (c *ClarificationRequest) SchemaVersion() string { return VersionClarification }
func (c *ClarificationRequest) Trace() string         { return c.TraceID }

// OptionLabels lists the option labels in order.
func (c *ClarificationRequest) OptionLabels() []string {
	labels := make([]string, 0, len(c.Options))
	for _, o := range c.Options {
		labels = append(labels, o.Label)
	}
	return labels
}

func (c *ClarificationRequest) UnmarshalJSON(data []byte) error {
	type alias ClarificationRequest
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ClarificationRequest(raw)
	c.Version = VersionClarification
	if c.Options == nil {
		c.Options = []ClarificationOption{}
	}
	for i := range c.Options {
		if c.Options[i].CandidateElementIDs == nil {
			c.Options[i].CandidateElementIDs = []string{}
		}
	}
	return nil
}

// TranscriptMessage carries one utterance into the interpreter.
type TranscriptMessage struct {
	Version    string         `json:"schema_version"`
	ID         string         `json:"id"`
	TraceID    string         `json:"trace_id,omitempty"`
	Transcript string         `json:"transcript"`
	Metadata   map[string]any `json:"metadata"`
}

func (m *TranscriptMessage) SchemaVersion() string { return VersionTranscript }
func (m *TranscriptMessage) Trace() string         { return m.TraceID }

// PipelineRequest is the orchestrator's inbound request: an utterance plus the
// accessibility snapshot of the page it refers to.
type PipelineRequest struct {
	Version    string         `json:"schema_version"`
	ID         string         `json:"id"`
	TraceID    string         `json:"trace_id,omitempty"`
	Transcript string         `json:"transcript"`
	AXTree     AXTree         `json:"ax_tree"`
	Metadata   map[string]any `json:"metadata"`
}

func (r *PipelineRequest) SchemaVersion() string { return VersionPipeline }
func (r *PipelineRequest) Trace() string         { return r.TraceID }

// NavigationRequest pairs a plan with a DOM snapshot.
type NavigationRequest struct {
	Version    string     `json:"schema_version"`
	ID         string     `json:"id"`
	TraceID    string     `json:"trace_id,omitempty"`
	ActionPlan ActionPlan `json:"action_plan"`
	DOMMap     DOMMap     `json:"dom_map"`
}

func (r *NavigationRequest) SchemaVersion() string { return VersionNavigator }
func (r *NavigationRequest) Trace() string         { return r.TraceID }

// AXNavigationRequest pairs a plan with an accessibility snapshot.
type AXNavigationRequest struct {
	Version    string     `json:"schema_version"`
	ID         string     `json:"id"`
	TraceID    string     `json:"trace_id,omitempty"`
	ActionPlan ActionPlan `json:"action_plan"`
	AXTree     AXTree     `json:"ax_tree"`
}

func (r *AXNavigationRequest) SchemaVersion() string { return VersionNavigator }
func (r *AXNavigationRequest) Trace() string         { return r.TraceID }

// UTCNow formats the current time the way snapshots stamp generated_at.
func UTCNow() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}
