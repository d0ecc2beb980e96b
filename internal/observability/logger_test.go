package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rahul/vcaa/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestInitialize_JSONConsole(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	buf := &bufferSyncer{}
	Initialize(config.LoggingConfig{Level: "debug", Format: "json", ServiceName: "test"}, buf)

	GetLogger().Info("hello", zap.String("trace_id", "t-1"))
	Sync()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test", entry["logger"])
	assert.Equal(t, "t-1", entry["trace_id"])
}

func TestInitialize_OnlyOnce(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	first := &bufferSyncer{}
	second := &bufferSyncer{}
	Initialize(config.LoggingConfig{Level: "info", Format: "json"}, first)
	Initialize(config.LoggingConfig{Level: "info", Format: "json"}, second)

	GetLogger().Info("once")
	assert.Contains(t, first.String(), "once")
	assert.Empty(t, second.String())
}

func TestInitialize_LevelFilteringAndFile(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	logFile := filepath.Join(t.TempDir(), "vcaa.log")
	buf := &bufferSyncer{}
	Initialize(config.LoggingConfig{Level: "warn", Format: "console", LogFile: logFile, MaxSize: 1}, buf)

	GetLogger().Info("quiet")
	GetLogger().Warn("loud")
	Sync()

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"loud"`)
}

func TestGetLogger_BeforeInitialize(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
	assert.NotNil(t, OrNop(nil))
}

func TestEventLogger_LLMExchangeMirrored(t *testing.T) {
	var main, exchanges bytes.Buffer
	core := zapcore.NewCore(encoderFor("json"), zapcore.AddSync(&main), zap.DebugLevel)
	el := NewEventLoggerTo(zap.New(core), &exchanges)

	el.LogLLM("trace-9", "openai", "interpret", map[string]any{"transcript": "scroll"}, `{"ok":true}`, errors.New("boom"))
	el.LogPolicy("trace-9", "allow", "")
	el.Sync()

	lines := strings.Split(strings.TrimSpace(exchanges.String()), "\n")
	require.Len(t, lines, 1, "only llm events reach the exchange log")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "llm", entry["type"])
	assert.Equal(t, "trace-9", entry["trace_id"])
	assert.Equal(t, "openai", entry["provider"])
	assert.Equal(t, "boom", entry["error"])

	assert.Contains(t, main.String(), "policy_check")
	assert.Contains(t, main.String(), `"msg":"llm"`)
}

func TestEventLogger_NilSafe(t *testing.T) {
	var el *EventLogger
	el.Log(Event{Type: EventTypePlan})
	el.LogPolicy("t", "deny", "x")
	el.Sync()
}

func TestMetrics_Counters(t *testing.T) {
	before := testutil.ToFloat64(InterpretationsTotal.WithLabelValues("fast_path", "action_plan"))
	RecordInterpretation("fast_path", "action_plan")
	assert.Equal(t, before+1, testutil.ToFloat64(InterpretationsTotal.WithLabelValues("fast_path", "action_plan")))

	beforeOrphans := testutil.ToFloat64(OrphansTotal.WithLabelValues("result"))
	RecordOrphan("result")
	assert.Equal(t, beforeOrphans+1, testutil.ToFloat64(OrphansTotal.WithLabelValues("result")))

	beforePruned := testutil.ToFloat64(SessionsPrunedTotal)
	RecordPruned(0)
	RecordPruned(3)
	assert.Equal(t, beforePruned+3, testutil.ToFloat64(SessionsPrunedTotal))

	ObserveLLM("openai", "interpret", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(LLMLatencySeconds))
}

func TestStatus(t *testing.T) {
	SetStatus(StagePlanning, "abc")
	stage, trace, at := GetStatus()
	assert.Equal(t, StagePlanning, stage)
	assert.Equal(t, "abc", trace)
	assert.WithinDuration(t, time.Now(), at, time.Second)
	SetStatus(StageIdle, "")
}
