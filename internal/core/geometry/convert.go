// Package geometry converts the two route wire formats into normalized points.
package geometry

import (
	"fmt"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// Convert dispatches on the document kind. Nothing downstream of this
// function branches on the source format again.
func Convert(doc *domain.SourceDocument) ([]domain.RawRoute, []domain.ItemError, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: nil document", domain.ErrSourceUnavailable)
	}
	switch doc.Kind {
	case domain.SourceFeatureCollection:
		return FromFeatureCollection(doc.FeatureCollection)
	case domain.SourceWKT:
		routes, errs := FromWKTRecords(doc.Records)
		return routes, errs, nil
	default:
		return nil, nil, &domain.GeometryFormatError{Format: string(doc.Kind), Index: -1, Reason: "unsupported source kind"}
	}
}
