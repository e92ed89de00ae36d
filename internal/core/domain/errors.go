package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGeometryFormat is matched by every *GeometryFormatError.
	ErrGeometryFormat = errors.New("geometry format error")

	// ErrOverlayAttachment is returned when the map surface refuses to create
	// or update an overlay. The next reconciliation pass retries.
	ErrOverlayAttachment = errors.New("overlay attachment failure")

	// ErrStaleHandle is returned when an operation targets an overlay that has
	// already been detached. Callers treat it as a no-op.
	ErrStaleHandle = errors.New("stale overlay handle")

	// ErrSourceUnavailable wraps failures of the route data source.
	ErrSourceUnavailable = errors.New("route source unavailable")

	// ErrNotFound is returned for unknown route ids.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is reported for a route whose id already appeared
	// earlier in the same catalog snapshot.
	ErrDuplicateID = errors.New("duplicate route id")
)

// GeometryFormatError describes a malformed route geometry.
type GeometryFormatError struct {
	Format string // "wkt" or "geojson"
	Index  int    // coordinate index, -1 when not applicable
	Token  string // offending input fragment
	Reason string
}

func (e *GeometryFormatError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: coordinate %d %q: %s", e.Format, e.Index, e.Token, e.Reason)
	}
	if e.Token != "" {
		return fmt.Sprintf("%s: %q: %s", e.Format, e.Token, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Format, e.Reason)
}

func (e *GeometryFormatError) Is(target error) bool {
	return target == ErrGeometryFormat
}

// ItemError reports a conversion failure for one route of a catalog.
type ItemError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Err   error  `json:"-"`
}

func (e ItemError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("route %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("route %d: %v", e.Index, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }
