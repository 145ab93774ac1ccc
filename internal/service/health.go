package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fingate/internal/database"
)

const readinessTimeout = 2 * time.Second

// Pinger 就緒檢查時需要回應的外部依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	live   atomic.Bool
	ready  atomic.Bool
	checks map[string]Pinger
}

func NewHealthService(conns *database.Connections) *HealthService {
	s := &HealthService{checks: make(map[string]Pinger)}
	if conns != nil {
		if conns.Mongo != nil {
			s.checks["mongodb"] = conns.Mongo
		}
		if conns.Redis != nil {
			s.checks["redis"] = conns.Redis
		}
	}
	s.live.Store(true)
	s.ready.Store(false) // 啟動完成後再打開
	return s
}

func (s *HealthService) SetReady(v bool) {
	s.ready.Store(v)
}

func (s *HealthService) IsLive() bool {
	return s.live.Load()
}

func (s *HealthService) IsReady() bool {
	return s.ready.Load()
}

// CheckReadiness 回傳各依賴的狀態；任一失敗即未就緒
func (s *HealthService) CheckReadiness(ctx context.Context) (map[string]string, bool) {
	status := map[string]string{}
	if !s.IsReady() {
		status["app"] = "starting"
		return status, false
	}
	status["app"] = "ok"
	ok := true
	for name, pinger := range s.checks {
		pingCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			status[name] = fmt.Sprintf("unavailable: %v", err)
			ok = false
			continue
		}
		status[name] = "ok"
	}
	return status, ok
}
