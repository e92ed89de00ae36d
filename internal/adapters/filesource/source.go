// Package filesource reads route documents from local files.
package filesource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// Format of a route file.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	// FormatWKT is a JSON array of {id, name, course_type, path} records.
	FormatWKT Format = "wkt"
)

// Source implements ports.RouteSource over a single file. The file is re-read
// on every Fetch so edits are picked up by a refresh.
type Source struct {
	path   string
	format Format
}

func New(path string, format Format) *Source {
	return &Source{path: path, format: format}
}

func (s *Source) Name() string { return "file:" + s.path }

func (s *Source) Fetch(ctx context.Context) (*domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return Decode(data, s.format)
}

// Decode wraps raw file contents in a SourceDocument. Only the envelope is
// checked here; geometry problems surface later as per-item errors.
func Decode(data []byte, format Format) (*domain.SourceDocument, error) {
	switch format {
	case FormatGeoJSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: invalid JSON", domain.ErrSourceUnavailable)
		}
		return &domain.SourceDocument{
			Kind:              domain.SourceFeatureCollection,
			FeatureCollection: json.RawMessage(data),
		}, nil
	case FormatWKT:
		var recs []domain.WKTRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		return &domain.SourceDocument{Kind: domain.SourceWKT, Records: recs}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrSourceUnavailable, format)
	}
}
