// Package logging configura o logger zap compartilhado pela aplicação.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New constrói um logger de produção com o nível informado
// ("debug", "info", "warn" ou "error").
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}

	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = parsed

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
