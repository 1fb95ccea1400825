package main

import (
	"log/slog"

	"github.com/soundprediction/multirag/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("Multirag colored logger demo")

	log.Debug("Debug message - standard color")
	log.Info("Info message - standard color")
	log.Info("Routed query - green!", "backends", "vector,graph", "fallback", false)
	log.Info("Retrieved evidence - green!", "vector", 3, "graph", 12, "web", 0)
	log.Info("Answer generated - green!", "path", "context", "latency", "1.2s")
	log.Warn("Backend timed out - yellow!", "backend", "web", "timeout", "10s")
	log.Error("Answer generation failed - red!", "error", "context deadline exceeded")
}
