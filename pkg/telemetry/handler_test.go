package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/multirag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetHandlerPersistsErrors(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	h, err := NewParquetHandlerWithBatch(slog.NewTextHandler(&out, nil), dir, 10)
	require.NoError(t, err)

	log := slog.New(h).With("component", "coordinator")
	ctx := types.WithRequestID(context.Background(), "req-42")
	ctx = types.WithUsage(ctx, types.UsageAnswer)

	log.InfoContext(ctx, "not persisted")
	log.ErrorContext(ctx, "backend failed", "backend", "graph", "error", errors.New("connection refused"))
	require.NoError(t, h.Close())

	assert.Contains(t, out.String(), "not persisted")

	files, err := filepath.Glob(filepath.Join(dir, "request_errors_*.parquet"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	rows, err := parquet.ReadFile[LogRecord](files[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "backend failed", rows[0].Message)
	assert.Equal(t, "req-42", rows[0].RequestID)
	assert.Equal(t, "answer", rows[0].Usage)
	assert.Contains(t, rows[0].Attributes, `"component":"coordinator"`)
	assert.Contains(t, rows[0].Attributes, "connection refused")
}

func TestParquetHandlerCloseWithoutRecords(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
