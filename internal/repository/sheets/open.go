package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/config"
)

// Open returns the store selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Repository, error) {
	switch cfg.Store.Backend {
	case config.BackendSheets:
		return NewGoogleSheetRepository(ctx, cfg.Sheets, logger)
	case config.BackendMemory:
		if logger != nil {
			logger.Warn("using in-memory store, data is lost on exit")
		}
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
