package log

import (
	"os"
	"strings"

	"fingate/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel 未知或空字串一律視為 info
func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func NewLogger(conf *config.Configuration) (*zap.Logger, error) {
	return newLogger(conf, zapcore.AddSync(os.Stdout), zapcore.AddSync(os.Stderr)), nil
}

// newLogger < warn 寫 stdout，>= warn 寫 stderr
func newLogger(conf *config.Configuration, stdout, stderr zapcore.WriteSyncer) *zap.Logger {
	atomic := zap.NewAtomicLevelAt(ParseLevel(conf.Log.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.TimeKey = "ts"
	encCfg.CallerKey = "caller"
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	stdoutLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return atomic.Enabled(l) && l < zapcore.WarnLevel
	})
	stderrLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return atomic.Enabled(l) && l >= zapcore.WarnLevel
	})
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stdout, stdoutLevel),
		zapcore.NewCore(encoder, stderr, stderrLevel),
	)

	fields := []zap.Field{}
	if conf.App.Name != "" {
		fields = append(fields, zap.String("service", conf.App.Name))
	}
	if conf.App.Env != "" {
		fields = append(fields, zap.String("env", conf.App.Env))
	}
	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(fields...),
	)
	logger.Info("zap logger ready", zap.String("level", atomic.Level().String()))
	return logger
}
