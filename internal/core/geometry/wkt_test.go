package geometry_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/geometry"
)

func TestFromLinearWKT(t *testing.T) {
	points, err := geometry.FromLinearWKT("LINESTRING(126.978 37.5665, 126.979 37.5675)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.Point{{Lat: 37.5665, Lon: 126.978}, {Lat: 37.5675, Lon: 126.979}}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], points[i])
		}
	}
}

func TestFromLinearWKT_Tolerated(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"lowercase keyword", "linestring(1 2, 3 4)", 2},
		{"space before paren", "LineString (1 2,3 4)", 2},
		{"padded commas", "LINESTRING(  1   2 ,\t3 4 ,5 6 )", 3},
		{"surrounding whitespace", "  LINESTRING(1 2, 3 4)\n", 2},
		{"negative and exponent", "LINESTRING(-2.935 43.263, 1e1 -4.5E1)", 2},
		{"empty", "LINESTRING EMPTY", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := geometry.FromLinearWKT(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(points) != tt.count {
				t.Errorf("expected %d points, got %d", tt.count, len(points))
			}
		})
	}
}

func TestFromLinearWKT_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIndex int
	}{
		{"not a linestring", "not a linestring", -1},
		{"point geometry", "POINT(1 2)", -1},
		{"missing parens", "LINESTRING 1 2, 3 4", -1},
		{"unclosed", "LINESTRING(1 2, 3 4", -1},
		{"nested", "LINESTRING((1 2, 3 4))", -1},
		{"single number", "LINESTRING(1 2, 3)", 1},
		{"three numbers", "LINESTRING(1 2 3, 4 5)", 0},
		{"garbage token", "LINESTRING(1 2, x 4)", 1},
		{"empty pair", "LINESTRING(1 2,, 3 4)", 1},
		{"latitude out of range", "LINESTRING(1 91, 3 4)", 0},
		{"longitude out of range", "LINESTRING(1 2, 181 4)", 1},
		{"nan", "LINESTRING(NaN 2, 3 4)", 0},
		{"empty string", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := geometry.FromLinearWKT(tt.input)
			if err == nil {
				t.Fatalf("expected error, got %v", points)
			}
			if points != nil {
				t.Errorf("expected no partial points, got %v", points)
			}
			if !errors.Is(err, domain.ErrGeometryFormat) {
				t.Errorf("expected ErrGeometryFormat, got %v", err)
			}
			var fe *domain.GeometryFormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *GeometryFormatError, got %T", err)
			}
			if fe.Index != tt.wantIndex {
				t.Errorf("expected index %d, got %d (%v)", tt.wantIndex, fe.Index, err)
			}
		})
	}
}

func TestFromLinearWKT_PreservesOrder(t *testing.T) {
	points, err := geometry.FromLinearWKT("LINESTRING(0 0, 1 1, 2 2, 3 3, 4 4, 5 5)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	for i, p := range points {
		if p.Lat != float64(i) || p.Lon != float64(i) {
			t.Errorf("point %d out of order: %v", i, p)
		}
	}
}

func TestFromWKTRecords_ReportsPerItem(t *testing.T) {
	records := []domain.WKTRecord{
		{ID: "a", Name: "Namsan", CourseType: "easy", Path: "LINESTRING(126.98 37.55, 126.99 37.56)", Properties: map[string]any{"distance": 2.4, "tags": []any{"x"}}},
		{ID: "b", Name: "Broken", Path: "LINESTRING(126.98)"},
		{ID: "c", Name: "Bukhan", CourseType: "hard", Path: "LINESTRING(126.97 37.65, 126.98 37.66, 126.99 37.67)"},
	}

	routes, errs := geometry.FromWKTRecords(records)
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if routes[0].ID != "a" || routes[1].ID != "c" {
		t.Errorf("unexpected ids %s, %s", routes[0].ID, routes[1].ID)
	}
	if routes[0].Classification != "easy" {
		t.Errorf("expected easy, got %s", routes[0].Classification)
	}
	if _, ok := routes[0].Properties["tags"]; ok {
		t.Error("expected non-scalar property to be dropped")
	}
	if routes[0].Properties["distance"] != 2.4 {
		t.Errorf("expected distance 2.4, got %v", routes[0].Properties["distance"])
	}

	if len(errs) != 1 {
		t.Fatalf("expected 1 item error, got %d", len(errs))
	}
	if errs[0].Index != 1 || errs[0].ID != "b" {
		t.Errorf("unexpected item error %+v", errs[0])
	}
	if !errors.Is(errs[0], domain.ErrGeometryFormat) {
		t.Errorf("expected item error to wrap ErrGeometryFormat, got %v", errs[0])
	}
}
