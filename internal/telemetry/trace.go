package telemetry

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"fingate/config"
	"fingate/internal/core"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Trace 未啟用時 TracerProvider 為 nil，所有方法都退化成 noop span
type Trace struct {
	TracerProvider *sdktrace.TracerProvider
	ServiceName    string
}

var noopTracer = noop.NewTracerProvider().Tracer("noop")

// Shutdown 送出尚未匯出的 span；未啟用時為 noop
func (t *Trace) Shutdown(ctx context.Context) error {
	if t == nil || t.TracerProvider == nil {
		return nil
	}
	return t.TracerProvider.Shutdown(ctx)
}

func NewTrace(conf *config.Configuration) (*Trace, error) {
	if conf == nil || !conf.Telemetry.Trace.Enabled {
		return &Trace{}, nil
	}
	traceConf := conf.Telemetry.Trace

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(traceConf.EndpointUrl),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  time.Minute,
		}),
		otlptracehttp.WithTimeout(30 * time.Second),
	}
	if traceConf.UseInsecure() {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		// 上游已決定取樣時沿用，閘道本身只對新 trace 做比例取樣
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(traceConf.Ratio()))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(conf.App.Name),
			semconv.ServiceVersion(conf.App.Version),
			semconv.DeploymentEnvironmentName(conf.App.Env),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Trace{TracerProvider: tp, ServiceName: conf.App.Name}, nil
}

func (t *Trace) tracer() trace.Tracer {
	if t == nil || t.TracerProvider == nil {
		return noopTracer
	}
	return t.TracerProvider.Tracer(t.ServiceName)
}

func (t *Trace) StartSpanForLayer(
	ctx context.Context,
	spanName core.TraceSpanName,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	return t.tracer().Start(ctx, string(spanName), opts...)
}

// WithSpan handler 傳 *gin.Context（span 名稱取 handler 名），
// service/repository 傳 context.Context（span 名稱取呼叫者方法名）。
// 回傳的 end 可直接 defer，err 非 nil 時標記為錯誤。
func (t *Trace) WithSpan(parent any, name ...string) (context.Context, trace.Span, func(error)) {
	ctx, span := t.start(parent, firstName(name))
	return ctx, span, func(err error) { t.EndSpan(span, err) }
}

// start 與 WithSpan 的呼叫深度固定，callerFuncName 依此取得外層函式
func (t *Trace) start(parent any, name string) (context.Context, trace.Span) {
	switch p := parent.(type) {
	case *gin.Context:
		if name == "" {
			name = spanNameFromGin(p)
		}
		ctx, span := t.StartSpanForLayer(t.GetTraceContext(p), core.TraceSpanName(name))
		p.Set(core.ContextTraceKey, ctx)
		return ctx, span
	case context.Context:
		if name == "" {
			name = prettifyFuncName(callerFuncName(3))
		}
		return t.StartSpanForLayer(p, core.TraceSpanName(orUnknown(name)))
	default:
		return t.StartSpanForLayer(context.Background(), core.TraceSpanName(orUnknown(name)))
	}
}

// EndSpan 統一結束 span（含錯誤標註）
func (t *Trace) EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// GetTraceContext 取得 TraceEntry 或上一層 handler 留下的 ctx
func (t *Trace) GetTraceContext(c *gin.Context) context.Context {
	if v, ok := c.Get(core.ContextTraceKey); ok {
		if ctx, ok := v.(context.Context); ok {
			return ctx
		}
	}
	return c.Request.Context()
}

// ApplyTraceAttributes 讀取 struct 上的 `trace:"name[,omitempty]"` tag 寫成 span attribute
func (t *Trace) ApplyTraceAttributes(span trace.Span, obj any) {
	if span == nil || obj == nil || !span.IsRecording() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("apply trace attributes: %v", r))
		}
	}()
	if attrs := traceAttributes(reflect.ValueOf(obj)); len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

func traceAttributes(val reflect.Value) []attribute.KeyValue {
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	typ := val.Type()
	var attrs []attribute.KeyValue
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldVal := val.Field(i)
		tag, opts, _ := strings.Cut(field.Tag.Get("trace"), ",")
		if opts == "omitempty" && fieldVal.IsZero() {
			continue
		}
		if tag == "" {
			// 未標記的巢狀 struct 仍展開
			if field.Anonymous || fieldVal.Kind() == reflect.Struct || fieldVal.Kind() == reflect.Ptr {
				attrs = append(attrs, traceAttributes(fieldVal)...)
			}
			continue
		}
		if kv, ok := traceAttribute(tag, fieldVal); ok {
			attrs = append(attrs, kv)
			continue
		}
		switch fieldVal.Kind() {
		case reflect.Struct, reflect.Ptr:
			attrs = append(attrs, traceAttributes(fieldVal)...)
		case reflect.Map:
			if fieldVal.Type().Key().Kind() != reflect.String {
				continue
			}
			iter := fieldVal.MapRange()
			for iter.Next() {
				if kv, ok := traceAttribute(tag+"."+iter.Key().String(), iter.Value()); ok {
					attrs = append(attrs, kv)
				}
			}
		}
	}
	return attrs
}

// traceAttribute 純量、字串 slice、time 與 duration
func traceAttribute(key string, v reflect.Value) (attribute.KeyValue, bool) {
	if !v.IsValid() {
		return attribute.KeyValue{}, false
	}
	switch v.Type() {
	case timeType:
		tm := v.Interface().(time.Time)
		if tm.IsZero() {
			return attribute.KeyValue{}, false
		}
		return attribute.String(key, tm.UTC().Format(time.RFC3339Nano)), true
	case durationType:
		return attribute.Int64(key+"_ms", v.Interface().(time.Duration).Milliseconds()), true
	}
	switch v.Kind() {
	case reflect.String:
		return attribute.String(key, v.String()), true
	case reflect.Bool:
		return attribute.Bool(key, v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return attribute.Int64(key, v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return attribute.Int64(key, int64(v.Uint())), true
	case reflect.Float32, reflect.Float64:
		return attribute.Float64(key, v.Float()), true
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() != reflect.String {
			return attribute.KeyValue{}, false
		}
		strs := make([]string, v.Len())
		for i := range strs {
			strs[i] = v.Index(i).String()
		}
		return attribute.StringSlice(key, strs), true
	}
	return attribute.KeyValue{}, false
}

func firstName(name []string) string {
	if len(name) > 0 {
		return strings.TrimSpace(name[0])
	}
	return ""
}

func orUnknown(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

// prettifyFuncName fingate/internal/service.(*GatewayService).Dispatch -> GatewayService.Dispatch
func prettifyFuncName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	if i := strings.Index(full, ".func"); i >= 0 {
		full = full[:i]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	full = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(full)
	if i := strings.Index(full, "["); i >= 0 {
		if j := strings.Index(full, "]"); j > i {
			full = full[:i] + full[j+1:]
		}
	}
	return full
}

func spanNameFromGin(c *gin.Context) string {
	if hn := c.HandlerName(); hn != "" {
		return prettifyFuncName(hn)
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.Request.Method + " " + route
}

func callerFuncName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}
	return ""
}
