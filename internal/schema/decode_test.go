package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ActionPlanDefaults(t *testing.T) {
	msg, err := Decode([]byte(`{"schema_version":"actionplan_v1","id":"p1","action":"scroll","confidence":0.5}`))
	require.NoError(t, err)

	plan, ok := msg.(*ActionPlan)
	require.True(t, ok, "expected *ActionPlan, got %T", msg)
	assert.Equal(t, "scroll", plan.Action)
	assert.NotNil(t, plan.Entities, "entities must never be nil")
	assert.NotNil(t, plan.RequiredFollowup)
	assert.Equal(t, VersionActionPlan, plan.SchemaVersion())
}

func TestDecode_ClarificationOptions(t *testing.T) {
	msg, err := Decode([]byte(`{"schema_version":"clarification_v1","question":"Which?","options":[{"label":"date"}],"reason":"missing_entities"}`))
	require.NoError(t, err)

	c, ok := msg.(*ClarificationRequest)
	require.True(t, ok)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, ReasonMissingEntities, c.Reason)
	require.Len(t, c.Options, 1)
	assert.NotNil(t, c.Options[0].CandidateElementIDs)
	assert.Equal(t, []string{"date"}, c.OptionLabels())
}

func TestDecode_ExecutionPlanVariants(t *testing.T) {
	msg, err := Decode([]byte(`{"schema_version":"executionplan_v1","id":"e1","steps":[{"step_id":"s1","action_type":"click","element_id":"el_3"}]}`))
	require.NoError(t, err)
	_, ok := msg.(*ExecutionPlan)
	assert.True(t, ok, "DOM plan expected, got %T", msg)

	msg, err = Decode([]byte(`{"schema_version":"executionplan_v1","id":"e2","steps":[{"step_id":"s1","action_type":"click","backend_node_id":42}]}`))
	require.NoError(t, err)
	ax, ok := msg.(*AXExecutionPlan)
	require.True(t, ok, "AX plan expected, got %T", msg)
	assert.Equal(t, int64(42), ax.Steps[0].BackendNodeID)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `hello`, ErrMalformed},
		{"unknown version", `{"schema_version":"weather_v1"}`, ErrUnknownSchema},
		{"missing version", `{"action":"scroll"}`, ErrUnknownSchema},
		{"navigator request is not a result", `{"schema_version":"navigator_v1"}`, ErrUnknownSchema},
		{"plan without action", `{"schema_version":"actionplan_v1","id":"x"}`, ErrMalformed},
		{"confidence out of range", `{"schema_version":"actionplan_v1","action":"scroll","confidence":3}`, ErrMalformed},
		{"wrong field type", `{"schema_version":"actionplan_v1","action":7}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncode_StampsVersion(t *testing.T) {
	plan := &ActionPlan{ID: "p", Action: "scroll", Entities: Entities{}}
	data, err := Encode(plan)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, VersionActionPlan, raw["schema_version"])
}

func TestDOMElement_DefaultsVisibleEnabled(t *testing.T) {
	var el DOMElement
	require.NoError(t, json.Unmarshal([]byte(`{"element_id":"a","tag":"input"}`), &el))
	assert.True(t, el.Visible)
	assert.True(t, el.Enabled)

	require.NoError(t, json.Unmarshal([]byte(`{"element_id":"b","tag":"button","enabled":false}`), &el))
	assert.False(t, el.Enabled)
	assert.True(t, el.Visible)
}
