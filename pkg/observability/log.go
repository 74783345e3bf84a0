package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports every event at debug level on a logger. It implements
// all three hook interfaces.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger.WithPrefix("hooks")}
}

func (h *LogHooks) OnImportStart(_ context.Context, sourceBytes int) {
	h.logger.Debug("import started", "bytes", sourceBytes)
}

func (h *LogHooks) OnImportComplete(_ context.Context, cells, diagnostics int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("import failed", "duration", d, "err", err)
		return
	}
	h.logger.Debug("import complete", "cells", cells, "diagnostics", diagnostics, "duration", d)
}

func (h *LogHooks) OnExportStart(_ context.Context, format string) {
	h.logger.Debug("export started", "format", format)
}

func (h *LogHooks) OnExportComplete(_ context.Context, format string, incompatibilities int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("export failed", "format", format, "duration", d, "err", err)
		return
	}
	h.logger.Debug("export complete", "format", format, "incompatibilities", incompatibilities, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "size", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, route string) {
	h.logger.Debug("request", "method", method, "route", route)
}

func (h *LogHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "route", route, "status", status, "duration", d)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ RequestHooks  = (*LogHooks)(nil)
)
