package catalog

import (
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/styling"
	"github.com/samirrijal/trailmap/internal/pkg/geospatial"
)

// Stats summarises entities. Non-numeric "distance" properties are ignored
// in the sum but the average still divides by every route.
func Stats(entities []domain.PathEntity) domain.CatalogStats {
	st := domain.CatalogStats{
		Total:            len(entities),
		ByClassification: make(map[domain.Classification]int, len(domain.Classifications)),
	}
	for _, c := range domain.Classifications {
		st.ByClassification[c] = 0
	}
	for _, e := range entities {
		st.ByClassification[e.Classification]++
		if d, ok := numeric(e.Properties["distance"]); ok {
			st.TotalDistance += d
		}
		st.TotalLengthM += geospatial.PathLength(e.Points)
	}
	if st.Total > 0 {
		st.AverageDistance = st.TotalDistance / float64(st.Total)
	}
	return st
}

// FilterByClassification returns the entities whose classification matches
// tag after coercion. An empty tag matches everything.
func FilterByClassification(entities []domain.PathEntity, tag string) []domain.PathEntity {
	if tag == "" {
		return entities
	}
	want := styling.ParseClassification(tag)
	out := make([]domain.PathEntity, 0, len(entities))
	for _, e := range entities {
		if e.Classification == want {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entity with the given id.
func Find(entities []domain.PathEntity, id string) (domain.PathEntity, bool) {
	for _, e := range entities {
		if e.ID == id {
			return e, true
		}
	}
	return domain.PathEntity{}, false
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
