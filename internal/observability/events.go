package observability

import (
	"io"
	"time"

	"github.com/rahul/vcaa/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType defines the category of a pipeline event.
type EventType string

const (
	EventTypeInterpretation EventType = "interpretation"
	EventTypePlan           EventType = "plan"
	EventTypeClarification  EventType = "clarification"
	EventTypePolicyCheck    EventType = "policy_check"
	EventTypeSession        EventType = "session"
	EventTypeLLM            EventType = "llm"
)

// Event represents a structured pipeline event.
type Event struct {
	Type      EventType
	TraceID   string
	Data      map[string]any
	Timestamp time.Time
}

// EventLogger writes pipeline events to the component logger and mirrors LLM
// exchanges into a dedicated rotating JSONL file.
type EventLogger struct {
	logger *zap.Logger
	llm    *zap.Logger
}

// NewEventLogger builds an EventLogger. An empty logging.llm_log_file keeps
// LLM exchanges in the main log only.
func NewEventLogger(logger *zap.Logger, cfg config.LoggingConfig) *EventLogger {
	el := &EventLogger{logger: OrNop(logger)}
	if cfg.LLMLogFile != "" {
		el.llm = newExchangeLogger(rotatingWriter(cfg, cfg.LLMLogFile))
	}
	return el
}

// NewEventLoggerTo sends LLM exchanges to w. Used by tests.
func NewEventLoggerTo(logger *zap.Logger, w io.Writer) *EventLogger {
	return &EventLogger{logger: OrNop(logger), llm: newExchangeLogger(zapcore.AddSync(w))}
}

func newExchangeLogger(ws zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "type"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, zap.DebugLevel))
}

// Log emits evt at info level.
func (l *EventLogger) Log(evt Event) {
	if l == nil {
		return
	}
	fields := eventFields(evt)
	l.logger.Info(string(evt.Type), fields...)
	if evt.Type == EventTypeLLM && l.llm != nil {
		l.llm.Info(string(evt.Type), fields...)
	}
}

func eventFields(evt Event) []zap.Field {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	fields := make([]zap.Field, 0, len(evt.Data)+2)
	fields = append(fields, zap.String("trace_id", evt.TraceID), zap.Time("at", evt.Timestamp))
	for k, v := range evt.Data {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

// LogLLM records one prompt/response exchange with a provider.
func (l *EventLogger) LogLLM(traceID, provider, purpose string, prompt any, response string, err error) {
	data := map[string]any{
		"provider": provider,
		"purpose":  purpose,
		"prompt":   prompt,
		"response": response,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeLLM, TraceID: traceID, Data: data})
}

// LogPolicy records a policy decision on an execution plan.
func (l *EventLogger) LogPolicy(traceID, effect, reason string) {
	l.Log(Event{
		Type:    EventTypePolicyCheck,
		TraceID: traceID,
		Data:    map[string]any{"effect": effect, "reason": reason},
	})
}

// Sync flushes the exchange log.
func (l *EventLogger) Sync() {
	if l != nil && l.llm != nil {
		_ = l.llm.Sync()
	}
}
