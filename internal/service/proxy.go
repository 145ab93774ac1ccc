package service

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fingate/internal/core"
	"fingate/internal/telemetry"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel/attribute"
)

// upstreamResponseLimit 內部服務回應上限
const upstreamResponseLimit = 8 << 20

// UpstreamHandler 以 HTTP 將請求轉給內部服務；身分由標頭帶入，不信任呼叫端內容
type UpstreamHandler struct {
	kind       core.RouteKind
	base       string
	httpClient *http.Client
	trace      *telemetry.Trace
}

func NewUpstreamHandler(kind core.RouteKind, base string, client *http.Client, trace *telemetry.Trace) *UpstreamHandler {
	return &UpstreamHandler{
		kind:       kind,
		base:       strings.TrimRight(base, "/"),
		httpClient: client,
		trace:      trace,
	}
}

func (handler *UpstreamHandler) Invoke(ctx context.Context, invocation Invocation) (_ *InvocationResult, returnedError error) {
	ctx, span, end := handler.trace.WithSpan(ctx, string(core.SpanUpstreamInvoke))
	defer func() { end(returnedError) }()

	target := handler.base + invocation.Route.Path
	if encoded := invocation.Query.Encode(); encoded != "" {
		target = target + "?" + encoded
	}
	span.SetAttributes(
		attribute.String("gateway.route", invocation.Route.Name),
		attribute.String("http.method", invocation.Method),
		attribute.String("http.url", target),
	)

	var body io.Reader
	if len(invocation.Body) > 0 {
		body = bytes.NewReader(invocation.Body)
	}
	request, err := http.NewRequestWithContext(ctx, invocation.Method, target, body)
	if err != nil {
		return nil, err
	}

	// 1) 複製呼叫端 header（去除 hop-by-hop、Authorization 與身分標頭）
	copySafeHeaders(invocation.Header, request.Header)

	// 2) 由閘道注入已驗證的身分
	request.Header.Set(core.HeaderOwnerID, invocation.Principal.OwnerID)
	request.Header.Set(core.HeaderAPIKeyID, invocation.Principal.KeyID)
	request.Header.Set(core.HeaderRoute, invocation.Route.Name)
	if invocation.RequestID != "" {
		request.Header.Set(core.HeaderRequestID, invocation.RequestID)
	}
	if request.Header.Get("Accept") == "" {
		request.Header.Set("Accept", "application/json")
	}
	if len(invocation.Body) > 0 && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}

	resp, err := handler.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, upstreamResponseLimit))
	if err != nil {
		return nil, err
	}
	decoded, err := decompressOnly(raw, resp.Header)
	if err != nil {
		// 解壓失敗時保留原始內容
		decoded = raw
	}
	header := resp.Header.Clone()
	header.Del("Content-Encoding")
	header.Del("Content-Length")
	return &InvocationResult{StatusCode: resp.StatusCode, Header: header, Body: decoded}, nil
}

// ---- helpers ----

var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Proxy-Connection":    {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// 由閘道管理的標頭，呼叫端帶入的一律丟棄
var gatewayManagedHeaders = map[string]struct{}{
	"Authorization":                              {},
	"Content-Length":                             {},
	"Cookie":                                     {},
	"Host":                                       {},
	"X-Request-Id":                               {},
	http.CanonicalHeaderKey(core.HeaderOwnerID):  {},
	http.CanonicalHeaderKey(core.HeaderAPIKeyID): {},
	http.CanonicalHeaderKey(core.HeaderRoute):    {},
}

func copySafeHeaders(src http.Header, dst http.Header) {
	for k, vv := range src {
		ck := http.CanonicalHeaderKey(k)
		if _, banned := hopByHopHeaders[ck]; banned {
			continue
		}
		if _, managed := gatewayManagedHeaders[ck]; managed {
			continue
		}
		for _, v := range vv {
			dst.Add(ck, v)
		}
	}
	// RFC7230: 若 Connection 有列出其他 header，也必須移除
	if cval := src.Get("Connection"); cval != "" {
		for _, t := range strings.Split(cval, ",") {
			if h := http.CanonicalHeaderKey(strings.TrimSpace(t)); h != "" {
				dst.Del(h)
			}
		}
	}
}

// 只負責解壓；若 Content-Encoding 缺失則用 magic 猜測
func decompressOnly(raw []byte, h http.Header) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(h.Get("Content-Encoding")))
	switch enc {
	case "gzip":
		return gunzipBytes(raw)
	case "deflate":
		return inflateZlibBytes(raw)
	case "zstd":
		return zstdBytes(raw)
	case "br":
		return brotliBytes(raw)
	default:
		if isGzip(raw) {
			return gunzipBytes(raw)
		}
		if isZstd(raw) {
			return zstdBytes(raw)
		}
		return raw, nil
	}
}

func gunzipBytes(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, upstreamResponseLimit))
}

func inflateZlibBytes(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, upstreamResponseLimit))
}

func zstdBytes(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(upstreamResponseLimit))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}

func brotliBytes(b []byte) ([]byte, error) {
	return io.ReadAll(io.LimitReader(brotli.NewReader(bytes.NewReader(b)), upstreamResponseLimit))
}

func isGzip(b []byte) bool { return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b }

func isZstd(b []byte) bool {
	return len(b) >= 4 && b[0] == 0x28 && b[1] == 0xB5 && b[2] == 0x2F && b[3] == 0xFD
}

// stripOwnerQuery 移除呼叫端自帶的身分參數
func stripOwnerQuery(query url.Values) url.Values {
	out := url.Values{}
	for k, vv := range query {
		if isOwnerField(k) {
			continue
		}
		out[k] = append([]string(nil), vv...)
	}
	return out
}
