package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanNamespaces are the attribute namespaces exported by default. A key is
// exported when it equals a namespace or starts with namespace + ".".
var SpanNamespaces = []string{
	"masonry",
	"layout",
	"items",
	"columns",
	"viewport",
	"http",
	"error",
}

// idSuffix marks per-item identifiers. They are unbounded in number and never
// exported, whatever their namespace.
const idSuffix = ".id"

// spanFilter is a SpanProcessor that exports only span attributes under the
// allowed namespaces.
type spanFilter struct {
	next       sdktrace.SpanProcessor
	namespaces []string
	logger     *slog.Logger
	reported   sync.Map
}

// NewAttributeFilter wraps next so that ended spans carry only attributes
// under namespaces (SpanNamespaces when empty). Keys ending in ".id" are
// always dropped. When logger is non-nil each dropped key is logged once.
func NewAttributeFilter(next sdktrace.SpanProcessor, logger *slog.Logger, namespaces ...string) sdktrace.SpanProcessor {
	if len(namespaces) == 0 {
		namespaces = SpanNamespaces
	}

	return &spanFilter{next: next, namespaces: namespaces, logger: logger}
}

func (f *spanFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.next.OnStart(parent, s)
}

// OnEnd hands next a view of s with the dropped attributes removed.
func (f *spanFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.next.OnEnd(&filteredSpan{ReadOnlySpan: s, keep: f.keep})
}

func (f *spanFilter) Shutdown(ctx context.Context) error {
	err := f.next.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("span filter shutdown: %w", err)
	}

	return nil
}

func (f *spanFilter) ForceFlush(ctx context.Context) error {
	err := f.next.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("span filter flush: %w", err)
	}

	return nil
}

func (f *spanFilter) keep(key string) bool {
	if !strings.HasSuffix(key, idSuffix) {
		for _, ns := range f.namespaces {
			if key == ns || strings.HasPrefix(key, ns+".") {
				return true
			}
		}
	}

	if f.logger != nil {
		if _, seen := f.reported.LoadOrStore(key, struct{}{}); !seen {
			f.logger.Warn("span attribute dropped", "key", key)
		}
	}

	return false
}

type filteredSpan struct {
	sdktrace.ReadOnlySpan

	keep func(string) bool
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	all := s.ReadOnlySpan.Attributes()
	out := make([]attribute.KeyValue, 0, len(all))

	for _, kv := range all {
		if s.keep(string(kv.Key)) {
			out = append(out, kv)
		}
	}

	return out
}
