package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownSchema is returned for payloads whose schema_version is not one
	// of the result variants.
	ErrUnknownSchema = errors.New("unknown schema_version")
	// ErrMalformed is returned when a payload is not valid JSON for its variant.
	ErrMalformed = errors.New("malformed payload")
)

type envelope struct {
	SchemaVersion string `json:"schema_version"`
}

// Decode turns a result payload into its concrete type by its schema_version
// discriminator. Only action plans, clarifications and execution plans decode.
// An execution plan whose steps carry backend_node_id decodes as an
// AXExecutionPlan.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg Message
	switch env.SchemaVersion {
	case VersionActionPlan:
		msg = &ActionPlan{}
	case VersionClarification:
		msg = &ClarificationRequest{}
	case VersionExecutionPlan:
		if bytes.Contains(data, []byte(`"backend_node_id"`)) {
			msg = &AXExecutionPlan{}
		} else {
			msg = &ExecutionPlan{}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, env.SchemaVersion)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.SchemaVersion, err)
	}
	if err := validate(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return msg, nil
}

func validate(msg Message) error {
	switch m := msg.(type) {
	case *ActionPlan:
		if m.Action == "" {
			return errors.New("action plan without action")
		}
		if m.ID == "" {
			m.ID = NewID()
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			return fmt.Errorf("confidence %v out of range", m.Confidence)
		}
	case *ClarificationRequest:
		if m.Question == "" {
			return errors.New("clarification without question")
		}
		if m.ID == "" {
			m.ID = NewID()
		}
	case *ExecutionPlan:
		if m.ID == "" {
			m.ID = NewID()
		}
		if m.Steps == nil {
			m.Steps = []ExecutionStep{}
		}
	case *AXExecutionPlan:
		if m.ID == "" {
			m.ID = NewID()
		}
		if m.Steps == nil {
			m.Steps = []AXExecutionStep{}
		}
	}
	return nil
}

// Encode marshals any message with its schema_version stamped.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *ActionPlan:
		m.Version = VersionActionPlan
	case *ClarificationRequest:
		m.Version = VersionClarification
	case *ExecutionPlan:
		m.Version = VersionExecutionPlan
	case *AXExecutionPlan:
		m.Version = VersionExecutionPlan
	}
	return json.Marshal(msg)
}
