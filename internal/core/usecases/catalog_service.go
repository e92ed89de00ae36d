package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trailmap/internal/core/catalog"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/geometry"
	"github.com/samirrijal/trailmap/internal/core/listwindow"
	"github.com/samirrijal/trailmap/internal/core/ports"
	"github.com/samirrijal/trailmap/internal/pkg/metrics"
	"github.com/samirrijal/trailmap/internal/pkg/telemetry"
)

// CatalogService loads route catalogs and answers queries on the current
// one. A failed load keeps the previous catalog.
type CatalogService struct {
	source   ports.RouteSource
	cache    ports.CacheService
	notifier ports.Notifier
	builder  *catalog.Builder
	cacheTTL int
	logger   *slog.Logger

	mu      sync.RWMutex
	current *domain.Catalog
	subs    map[int]func(*domain.Catalog)
	nextSub int
}

// NewCatalogService creates a new CatalogService. cache and notifier may be
// nil; cacheTTL is in seconds and 0 disables caching.
func NewCatalogService(source ports.RouteSource, cache ports.CacheService, notifier ports.Notifier, cacheTTL int) *CatalogService {
	return &CatalogService{
		source:   source,
		cache:    cache,
		notifier: notifier,
		builder:  catalog.NewBuilder(),
		cacheTTL: cacheTTL,
		logger:   slog.Default().With("component", "catalog"),
		subs:     make(map[int]func(*domain.Catalog)),
	}
}

// SetLogger replaces the service logger. Call before Load.
func (s *CatalogService) SetLogger(l *slog.Logger) {
	s.logger = l.With("component", "catalog")
}

func (s *CatalogService) cacheKey() string {
	return "trails:source:" + s.source.Name()
}

// Load fetches, converts and installs a new catalog. Per-route conversion
// failures are kept in Catalog.Errors; only a source failure or an
// unreadable document fails the load.
func (s *CatalogService) Load(ctx context.Context) (*domain.Catalog, error) {
	ctx, span := telemetry.Tracer("usecases").Start(ctx, "CatalogService.Load")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrSource, s.source.Name()))

	start := time.Now()
	defer func() {
		metrics.CatalogLoadDuration.WithLabelValues(s.source.Name()).Observe(time.Since(start).Seconds())
	}()

	doc, err := s.fetch(ctx)
	if err == nil {
		cat, convErr := s.convert(doc)
		if convErr == nil {
			s.install(ctx, cat)
			span.SetAttributes(
				attribute.Int(telemetry.AttrRoutes, len(cat.Entities)),
				attribute.Int(telemetry.AttrItemErrors, len(cat.Errors)),
			)
			return cat, nil
		}
		err = convErr
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.CatalogLoads.WithLabelValues(s.source.Name(), "error").Inc()
	s.logger.Error("catalog load failed", "source", s.source.Name(), "error", err)
	s.notify(ctx, domain.Event{Kind: domain.EventCatalogFailed, Detail: map[string]any{"error": err.Error()}})
	return nil, err
}

// Refresh drops the cached source document and loads again.
func (s *CatalogService) Refresh(ctx context.Context) (*domain.Catalog, error) {
	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Delete(ctx, s.cacheKey()); err != nil {
			s.logger.Warn("cache invalidation failed", "error", err)
		}
	}
	return s.Load(ctx)
}

func (s *CatalogService) fetch(ctx context.Context) (*domain.SourceDocument, error) {
	useCache := s.cache != nil && s.cacheTTL > 0
	if useCache {
		if data, err := s.cache.Get(ctx, s.cacheKey()); err == nil {
			var doc domain.SourceDocument
			if err := json.Unmarshal(data, &doc); err == nil {
				metrics.CacheHits.WithLabelValues("catalog").Inc()
				trace.SpanFromContext(ctx).SetAttributes(attribute.String(telemetry.AttrCacheResult, "hit"))
				return &doc, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("catalog").Inc()
		trace.SpanFromContext(ctx).SetAttributes(attribute.String(telemetry.AttrCacheResult, "miss"))
	}

	doc, err := s.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, s.source.Name(), err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s returned no document", domain.ErrSourceUnavailable, s.source.Name())
	}

	if useCache {
		if data, err := json.Marshal(doc); err == nil {
			if err := s.cache.Set(ctx, s.cacheKey(), data, s.cacheTTL); err != nil {
				s.logger.Warn("cache write failed", "error", err)
			}
		}
	}
	return doc, nil
}

func (s *CatalogService) convert(doc *domain.SourceDocument) (*domain.Catalog, error) {
	routes, itemErrs, err := geometry.Convert(doc)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", s.source.Name(), err)
	}
	if len(itemErrs) > 0 {
		metrics.ConversionErrors.WithLabelValues(string(doc.Kind)).Add(float64(len(itemErrs)))
	}
	for _, ie := range itemErrs {
		s.logger.Warn("route dropped", "index", ie.Index, "id", ie.ID, "error", ie.Err)
	}
	return s.builder.Build(routes, itemErrs), nil
}

func (s *CatalogService) install(ctx context.Context, cat *domain.Catalog) {
	s.mu.Lock()
	s.current = cat
	subs := make([]func(*domain.Catalog), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	metrics.CatalogLoads.WithLabelValues(s.source.Name(), "ok").Inc()
	metrics.CatalogRoutes.Set(float64(len(cat.Entities)))
	s.logger.Info("catalog loaded", "source", s.source.Name(), "routes", len(cat.Entities), "dropped", len(cat.Errors))
	s.notify(ctx, domain.Event{
		Kind:   domain.EventCatalogLoaded,
		Detail: map[string]any{"routes": len(cat.Entities), "dropped": len(cat.Errors)},
	})
	for _, fn := range subs {
		fn(cat)
	}
}

func (s *CatalogService) notify(ctx context.Context, ev domain.Event) {
	if s.notifier == nil {
		return
	}
	ev.Scope = "catalog"
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("notify failed", "kind", ev.Kind, "error", err)
	}
}

// Subscribe registers fn to be called with every newly installed catalog.
// fn runs on the loading goroutine and must not block.
func (s *CatalogService) Subscribe(fn func(*domain.Catalog)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Current returns the installed catalog, or nil before the first load.
func (s *CatalogService) Current() *domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Entities returns the routes of the current catalog.
func (s *CatalogService) Entities() []domain.PathEntity {
	if cat := s.Current(); cat != nil {
		return cat.Entities
	}
	return nil
}

// GetByID returns a single route.
func (s *CatalogService) GetByID(id string) (*domain.PathEntity, error) {
	e, ok := catalog.Find(s.Entities(), id)
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return &e, nil
}

// FilterByClassification returns routes with the given classification; an
// empty tag returns every route.
func (s *CatalogService) FilterByClassification(tag string) []domain.PathEntity {
	return catalog.FilterByClassification(s.Entities(), tag)
}

// Stats summarises the current catalog.
func (s *CatalogService) Stats() domain.CatalogStats {
	return catalog.Stats(s.Entities())
}

// Window computes the list window over the routes matching tag.
func (s *CatalogService) Window(tag string, itemHeight, scrollOffset, viewportHeight int) (domain.ListWindow, []domain.PathEntity) {
	entities := s.FilterByClassification(tag)
	w := listwindow.Window(len(entities), itemHeight, scrollOffset, viewportHeight)
	return w, entities[w.StartIndex:w.EndIndex]
}
