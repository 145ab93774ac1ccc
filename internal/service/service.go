package service

import (
	"net"
	"net/http"
	"time"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewHTTPClient,
	ProvideRegistryWithUpstreams,
	NewGatewayService,
	NewKeyTouchBatcher,
	NewAPIKeyService,
	NewWebhookService,
	NewEventService,
	NewUsageLogger,
	NewLogNotifier,
	wire.Bind(new(Notifier), new(*LogNotifier)),
	NewDeliveryWorker,
	NewHealthService,
)

// NewHTTPClient 轉發內部服務與投遞 webhook 共用；逾時由各呼叫端的 context 控制
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
			// 保留原始壓縮內容，由 proxy 自行解碼
			DisableCompression: true,
		},
		// webhook 不跟隨轉址
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
