package domain

import (
	"encoding/json"
	"time"
)

// SourceKind tags the wire format of a SourceDocument.
type SourceKind string

const (
	SourceFeatureCollection SourceKind = "feature_collection"
	SourceWKT               SourceKind = "wkt"
)

// WKTRecord is a route whose geometry is a LINESTRING in WKT.
type WKTRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CourseType string         `json:"course_type"`
	Path       string         `json:"path"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SourceDocument is the tagged union handed over by a route source. Exactly
// one of FeatureCollection or Records is meaningful, selected by Kind.
type SourceDocument struct {
	Kind              SourceKind      `json:"kind"`
	FeatureCollection json.RawMessage `json:"feature_collection,omitempty"`
	Records           []WKTRecord     `json:"records,omitempty"`
}

// Event is a notification emitted by a visualization scope.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Scope   string         `json:"scope"`
	RouteID string         `json:"route_id,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
	At      time.Time      `json:"at"`
}

// EventKind names an Event.
type EventKind string

const (
	EventSelectionChanged EventKind = "selection_changed"
	EventRevealCompleted  EventKind = "reveal_completed"
	EventCatalogLoaded    EventKind = "catalog_loaded"
	EventCatalogFailed    EventKind = "catalog_failed"
)
