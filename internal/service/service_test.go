package service

import (
	"testing"

	"fingate/config"
	"fingate/internal/database/memory"
	"fingate/internal/database/store"
	"fingate/internal/telemetry"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	conf   *config.Configuration
	trace  *telemetry.Trace
	metric *telemetry.Metric
	logger *zap.Logger
	stores *store.Stores
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	conf := &config.Configuration{}
	conf.App.Name = "fingate"
	conf.App.Version = "test"
	conf.App.SecretKey = "pepper"
	conf.Storage.Driver = config.StorageDriverMemory
	return &testEnv{
		conf:   conf,
		trace:  trace,
		metric: telemetry.NewMetric(nil),
		logger: zap.NewNop(),
		stores: memory.NewStores(),
	}
}
