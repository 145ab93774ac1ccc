package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"fingate/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTrace() (*Trace, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return &Trace{TracerProvider: tp, ServiceName: "fingate-test"}, recorder
}

type dispatcher struct{ trace *Trace }

//go:noinline
func (d *dispatcher) Dispatch(ctx context.Context) {
	_, _, end := d.trace.WithSpan(ctx)
	end(nil)
}

func TestWithSpanNamesSpanAfterCaller(t *testing.T) {
	tr, recorder := newRecordingTrace()
	(&dispatcher{trace: tr}).Dispatch(context.Background())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "dispatcher.Dispatch", spans[0].Name())
}

func TestWithSpanExplicitNameAndError(t *testing.T) {
	tr, recorder := newRecordingTrace()
	_, _, end := tr.WithSpan(context.Background(), string(core.SpanDeliveryAttempt))
	end(errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, string(core.SpanDeliveryAttempt), spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

type nestedMeta struct {
	Store string `trace:"ratelimit.store"`
}

type optionalMeta struct {
	KeyID string `trace:"auth.api_key_id,omitempty"`
	Where string `trace:"auth.where"`
}

type sampleMeta struct {
	Route    string            `trace:"gateway.route"`
	Status   int               `trace:"gateway.status"`
	Allowed  bool              `trace:"gateway.allowed"`
	Events   []string          `trace:"webhook.events"`
	Elapsed  time.Duration     `trace:"gateway.elapsed"`
	Labels   map[string]string `trace:"label"`
	Nested   *nestedMeta
	Ignored  string
	internal string `trace:"never"`
}

func TestApplyTraceAttributes(t *testing.T) {
	tr, recorder := newRecordingTrace()
	_, span, end := tr.WithSpan(context.Background(), "attrs")
	tr.ApplyTraceAttributes(span, &sampleMeta{
		Route:    "reports",
		Status:   200,
		Allowed:  true,
		Events:   []string{"report.generated"},
		Elapsed:  1500 * time.Millisecond,
		Labels:   map[string]string{"tier": "gold"},
		Nested:   &nestedMeta{Store: "redis"},
		Ignored:  "x",
		internal: "y",
	})
	end(nil)

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range recorder.Ended()[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "reports", got["gateway.route"].AsString())
	assert.Equal(t, int64(200), got["gateway.status"].AsInt64())
	assert.True(t, got["gateway.allowed"].AsBool())
	assert.Equal(t, []string{"report.generated"}, got["webhook.events"].AsStringSlice())
	assert.Equal(t, int64(1500), got["gateway.elapsed_ms"].AsInt64())
	assert.Equal(t, "gold", got["label.tier"].AsString())
	assert.Equal(t, "redis", got["ratelimit.store"].AsString())
	assert.NotContains(t, got, attribute.Key("never"))
	assert.Len(t, got, 7)
}

func TestDisabledTraceIsNoop(t *testing.T) {
	tr, err := NewTrace(nil)
	require.NoError(t, err)

	ctx, span, end := tr.WithSpan(context.Background())
	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
	tr.ApplyTraceAttributes(span, sampleMeta{Route: "reports"})
	end(errors.New("ignored"))
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestPrettifyFuncName(t *testing.T) {
	cases := map[string]string{
		"fingate/internal/service.(*GatewayService).Dispatch":  "GatewayService.Dispatch",
		"fingate/internal/handler.(*WebhookHandler).Create-fm": "WebhookHandler.Create",
		"fingate/internal/middleware.(*Usage).Recorder.func1":  "Usage.Recorder",
		"fingate/internal/database/memory.(*store[...]).Get":   "store.Get",
		"fingate/internal/service.modelToDeliveryResponseDto":  "modelToDeliveryResponseDto",
	}
	for in, want := range cases {
		assert.Equal(t, want, prettifyFuncName(in), in)
	}
}

func TestApplyTraceAttributesOmitEmpty(t *testing.T) {
	tr, recorder := newRecordingTrace()
	_, span, end := tr.WithSpan(context.Background(), "omit")
	tr.ApplyTraceAttributes(span, optionalMeta{})
	tr.ApplyTraceAttributes(span, optionalMeta{KeyID: "k1", Where: "header"})
	end(nil)

	var keys []string
	for _, kv := range recorder.Ended()[0].Attributes() {
		keys = append(keys, string(kv.Key))
	}
	assert.ElementsMatch(t, []string{"auth.where", "auth.api_key_id"}, uniqueStrings(keys))
	assert.NotContains(t, keys, "auth.api_key_id,omitempty")
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
