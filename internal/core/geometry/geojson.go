package geometry

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

const formatGeoJSON = "geojson"

// FromFeatureCollection converts the LineString features of a GeoJSON
// FeatureCollection. Positions are [lon, lat] on the wire and are swapped
// into Point{Lat, Lon}. Features of other geometry kinds are skipped without
// error. A structurally invalid feature is reported as an item error and
// the rest of the collection is still converted. The returned error is
// non-nil only when the document itself is not a feature collection.
func FromFeatureCollection(data []byte) ([]domain.RawRoute, []domain.ItemError, error) {
	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, &domain.GeometryFormatError{Format: formatGeoJSON, Index: -1, Reason: "invalid document: " + err.Error()}
	}
	if doc.Type != "FeatureCollection" {
		return nil, nil, &domain.GeometryFormatError{Format: formatGeoJSON, Index: -1, Token: doc.Type, Reason: "not a FeatureCollection"}
	}

	routes := make([]domain.RawRoute, 0, len(doc.Features))
	var errs []domain.ItemError
	for i, raw := range doc.Features {
		route, ok, err := convertFeature(raw)
		if err != nil {
			errs = append(errs, domain.ItemError{Index: i, ID: route.ID, Err: err})
			continue
		}
		if ok {
			routes = append(routes, route)
		}
	}
	return routes, errs, nil
}

// convertFeature returns ok=false for features that are not lines.
func convertFeature(raw json.RawMessage) (domain.RawRoute, bool, error) {
	f, err := geojson.UnmarshalFeature(raw)
	if err != nil {
		return domain.RawRoute{ID: peekID(raw)}, false, &domain.GeometryFormatError{Format: formatGeoJSON, Index: -1, Reason: "invalid feature: " + err.Error()}
	}

	route := domain.RawRoute{
		ID:             featureID(f.ID, f.Properties),
		Name:           scalarString(f.Properties["name"]),
		Classification: classificationTag(f.Properties),
		Properties:     scalarProperties(f.Properties),
	}

	ls, ok := f.Geometry.(orb.LineString)
	if !ok {
		return route, false, nil
	}

	// orb pads short positions with zeros and drops extra ordinates, so the
	// raw positions are checked before trusting the decoded line.
	var peek struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return route, false, &domain.GeometryFormatError{Format: formatGeoJSON, Index: -1, Reason: "invalid coordinates: " + err.Error()}
	}
	for i, pos := range peek.Geometry.Coordinates {
		if len(pos) < 2 || len(pos) > 3 {
			return route, false, &domain.GeometryFormatError{Format: formatGeoJSON, Index: i, Token: fmt.Sprint(pos), Reason: "position must have two or three numbers"}
		}
	}

	route.Points = make([]domain.Point, 0, len(ls))
	for i, p := range ls {
		pt := domain.Point{Lat: p.Lat(), Lon: p.Lon()}
		if !pt.Valid() {
			return route, false, &domain.GeometryFormatError{Format: formatGeoJSON, Index: i, Token: pt.String(), Reason: "coordinate out of range"}
		}
		route.Points = append(route.Points, pt)
	}
	return route, true, nil
}

// featureID prefers the "id" property over the feature-level id.
func featureID(id any, props map[string]any) string {
	if s := scalarString(props["id"]); s != "" {
		return s
	}
	return scalarString(id)
}

// peekID recovers the id of a feature orb refused to decode so the item
// error can still name it.
func peekID(raw json.RawMessage) string {
	var peek struct {
		ID         any            `json:"id"`
		Properties map[string]any `json:"properties"`
	}
	if json.Unmarshal(raw, &peek) != nil {
		return ""
	}
	return featureID(peek.ID, peek.Properties)
}

func classificationTag(props geojson.Properties) string {
	for _, key := range []string{"courseType", "course_type", "classification"} {
		if s := scalarString(props[key]); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

// scalarProperties keeps string, number and bool values.
func scalarProperties(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch v.(type) {
		case string, float64, float32, int, int64, bool, json.Number:
			out[k] = v
		}
	}
	return out
}
