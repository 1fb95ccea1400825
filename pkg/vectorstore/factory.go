package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/multirag/pkg/config"
)

// Open builds the configured store.
func Open(ctx context.Context, cfg config.VectorConfig, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Provider) {
	case "milvus", "":
		return NewMilvusStore(ctx, cfg)
	case "badger":
		return OpenBadgerStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported vector provider: %q", cfg.Provider)
	}
}
