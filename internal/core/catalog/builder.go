// Package catalog turns converted routes into immutable PathEntity snapshots.
package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/styling"
)

// UnnamedTrail is the display name of a route without one.
const UnnamedTrail = "Unnamed Trail"

// idSpace namespaces synthesized route ids.
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:trailmap:route"))

// Builder assembles PathEntities. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder stamping snapshots with the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// SynthesizeID derives "trail-<uuid>" from the route's name, classification
// and geometry, so an unchanged id-less route keeps its id across loads.
func SynthesizeID(r domain.RawRoute) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(r.Name))
	sb.WriteByte(0)
	sb.WriteString(strings.ToLower(strings.TrimSpace(r.Classification)))
	for _, p := range r.Points {
		sb.WriteByte(0)
		sb.WriteString(strconv.FormatFloat(p.Lat, 'g', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Lon, 'g', -1, 64))
	}
	return "trail-" + uuid.NewSHA1(idSpace, []byte(sb.String())).String()
}

// Entity builds one PathEntity. Points and properties are copied so the
// result shares nothing with the input.
func (b *Builder) Entity(r domain.RawRoute) domain.PathEntity {
	e, _ := b.entity(r)
	return e
}

func (b *Builder) entity(r domain.RawRoute) (domain.PathEntity, bool) {
	id := strings.TrimSpace(r.ID)
	synthesized := id == ""
	if synthesized {
		id = SynthesizeID(r)
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = UnnamedTrail
	}
	class := styling.ParseClassification(r.Classification)

	var props map[string]any
	if len(r.Properties) > 0 {
		props = maps.Clone(r.Properties)
	}
	return domain.PathEntity{
		ID:             id,
		Name:           name,
		Classification: class,
		Points:         slices.Clone(r.Points),
		Style:          styling.Resolve(class),
		Properties:     props,
	}, synthesized
}

// Build assembles a catalog snapshot. convErrs are the conversion failures
// of the same source and are carried into the catalog. A route whose id was
// already used earlier in the snapshot is dropped and reported. Id-less
// routes with identical content are kept and numbered in source order.
func (b *Builder) Build(routes []domain.RawRoute, convErrs []domain.ItemError) *domain.Catalog {
	cat := &domain.Catalog{
		Entities: make([]domain.PathEntity, 0, len(routes)),
		Errors:   slices.Clone(convErrs),
		LoadedAt: b.now(),
	}
	seen := make(map[string]struct{}, len(routes))
	for i, r := range routes {
		e, synthesized := b.entity(r)
		if synthesized {
			base := e.ID
			for n := 2; ; n++ {
				if _, dup := seen[e.ID]; !dup {
					break
				}
				e.ID = base + "-" + strconv.Itoa(n)
			}
		}
		if _, dup := seen[e.ID]; dup {
			cat.Errors = append(cat.Errors, domain.ItemError{Index: i, ID: e.ID, Err: fmt.Errorf("%w: %s", domain.ErrDuplicateID, e.ID)})
			continue
		}
		seen[e.ID] = struct{}{}
		cat.Entities = append(cat.Entities, e)
	}
	return cat
}
