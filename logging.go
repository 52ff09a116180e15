package perpdesk

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/perpdesk/go-perpdesk/config"
)

// NewLogger builds the production logger the client uses when none is
// injected. Key material and full payload bodies are never logged at any
// level; the pipeline only emits identifiers, nonces and verdicts.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = true

	return zcfg.Build()
}
