package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/trailmap/internal/adapters/http"
	"github.com/samirrijal/trailmap/internal/core/domain"
	"github.com/samirrijal/trailmap/internal/core/usecases"
	"github.com/samirrijal/trailmap/internal/pkg/config"
)

// ---- Mock route source ----

type mockSource struct {
	fetchFn func(ctx context.Context) (*domain.SourceDocument, error)
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Fetch(ctx context.Context) (*domain.SourceDocument, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return trailDoc(), nil
}

func trailDoc() *domain.SourceDocument {
	return &domain.SourceDocument{
		Kind: domain.SourceWKT,
		Records: []domain.WKTRecord{
			{ID: "bukhan", Name: "Bukhansan Ridge", CourseType: "easy",
				Path:       "LINESTRING(126.98 37.66, 126.99 37.67, 127.00 37.68)",
				Properties: map[string]any{"distance": 5.2}},
			{ID: "namsan", Name: "Namsan Loop", CourseType: "medium",
				Path: "LINESTRING(126.98 37.55, 126.99 37.551)"},
			{ID: "broken", Name: "Broken", CourseType: "hard",
				Path: "LINESTRING(126.98 37.55"},
			{ID: "seorak", Name: "Seoraksan", CourseType: "hard",
				Path: "LINESTRING(128.46 38.12, 128.47 38.13)"},
			{ID: "hangang", Name: "Hangang Riverside", CourseType: "scenic",
				Path: "LINESTRING(126.93 37.52, 126.95 37.52, 126.97 37.53)"},
		},
	}
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(t *testing.T, src *mockSource, load bool) *handler.Dependencies {
	t.Helper()
	svc := usecases.NewCatalogService(src, nil, nil, 0)
	if load {
		if _, err := svc.Load(context.Background()); err != nil {
			t.Fatalf("load catalog: %v", err)
		}
	}
	return &handler.Dependencies{
		Catalog:   svc,
		Animation: config.AnimationConfig{Enabled: false},
		List:      config.ListConfig{ItemHeight: 32, ViewportHeight: 128},
		Render:    config.RenderConfig{Width: 320, Height: 240, Padding: 8, FrameIntervalMS: 16},
	}
}

func get(t *testing.T, app *fiber.App, target string, headers ...string) *httpResponse {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	return &httpResponse{Status: resp.StatusCode, Header: resp.Header.Get, Body: readBody(t, resp.Body)}
}

type httpResponse struct {
	Status int
	Header func(string) string
	Body   []byte
}

func (r *httpResponse) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode %s: %v", r.Body, err)
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

type trailPage struct {
	Data       []handler.TrailSummary `json:"data"`
	Pagination handler.Pagination     `json:"pagination"`
}

// ---- Trail handler tests ----

func TestListTrails_Success(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	resp := get(t, app, "/v1/trails")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var result trailPage
	resp.decode(t, &result)
	if result.Pagination.Total != 4 || len(result.Data) != 4 {
		t.Fatalf("expected 4 trails, got %d/%d", len(result.Data), result.Pagination.Total)
	}
	first := result.Data[0]
	if first.ID != "bukhan" || first.PointCount != 3 || first.LengthM <= 0 {
		t.Errorf("unexpected first trail %+v", first)
	}
	if first.Style.StrokeColor != "#4CAF50" {
		t.Errorf("easy trail should be green, got %s", first.Style.StrokeColor)
	}
}

func TestListTrails_FilterAndPaginate(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	var result trailPage
	get(t, app, "/v1/trails?classification=EASY").decode(t, &result)
	if len(result.Data) != 1 || result.Data[0].ID != "bukhan" {
		t.Errorf("expected only bukhan, got %+v", result.Data)
	}

	resp := get(t, app, "/v1/trails?offset=1&limit=2")
	resp.decode(t, &result)
	if len(result.Data) != 2 || result.Data[0].ID != "namsan" {
		t.Errorf("unexpected page %+v", result.Data)
	}
	if link := resp.Header("Link"); !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected prev and next links, got %q", link)
	}
}

func TestGetTrail(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	resp := get(t, app, "/v1/trails/hangang")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
	var d handler.TrailDetail
	resp.decode(t, &d)
	if len(d.Points) != 3 || d.Center == nil || d.Style.StrokeDash != domain.DashDashed {
		t.Errorf("unexpected detail %+v", d)
	}
	if d.Points[0].Lat != 37.52 || d.Points[0].Lon != 126.93 {
		t.Errorf("expected lat/lon order, got %v", d.Points[0])
	}

	if resp := get(t, app, "/v1/trails/broken"); resp.Status != 404 {
		t.Errorf("dropped route should be 404, got %d", resp.Status)
	}
}

func TestTrailStatsAndErrors(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	var stats handler.CatalogStatsResponse
	get(t, app, "/v1/trails/stats").decode(t, &stats)
	if stats.Total != 4 || stats.Errors != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.ByClassification[domain.ClassHard] != 1 || stats.ByClassification[domain.ClassUnknown] != 0 {
		t.Errorf("unexpected counts %v", stats.ByClassification)
	}
	if stats.TotalDistance != 5.2 {
		t.Errorf("expected total distance 5.2, got %v", stats.TotalDistance)
	}

	var errs []handler.ConversionError
	get(t, app, "/v1/trails/errors").decode(t, &errs)
	if len(errs) != 1 || errs[0].ID != "broken" || errs[0].Index != 2 || errs[0].Message == "" {
		t.Errorf("unexpected errors %+v", errs)
	}
}

func TestTrailWindow(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	var w handler.WindowResponse
	get(t, app, "/v1/trails/window?item_height=10&viewport=20&scroll=15").decode(t, &w)
	if w.Window.StartIndex != 1 || w.Window.EndIndex != 4 || w.Window.TotalHeight != 40 {
		t.Errorf("unexpected window %+v", w.Window)
	}
	if len(w.Rows) != 3 || w.Rows[0].Index != 1 || w.Rows[0].Top != 10 || w.Rows[0].Trail.ID != "namsan" {
		t.Errorf("unexpected rows %+v", w.Rows)
	}
}

func TestTrailWindow_BadParams(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	for _, q := range []string{"item_height=0", "scroll=-1", "viewport=-5"} {
		if resp := get(t, app, "/v1/trails/window?"+q); resp.Status != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.Status)
		}
	}
}

func TestSnapshot(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	resp := get(t, app, "/v1/trails/snapshot.png?width=64&height=48&selected=namsan")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.Status, resp.Body)
	}
	if ct := resp.Header("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("unexpected size %v", b)
	}

	if resp := get(t, app, "/v1/trails/snapshot.png?selected=nope"); resp.Status != 404 {
		t.Errorf("unknown selection: expected 404, got %d", resp.Status)
	}
	if resp := get(t, app, "/v1/trails/snapshot.png?width=0"); resp.Status != 400 {
		t.Errorf("zero width: expected 400, got %d", resp.Status)
	}
}

func TestTrails_NotLoaded(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, false))

	for _, path := range []string{"/v1/trails", "/v1/trails/stats", "/v1/trails/namsan"} {
		if resp := get(t, app, path); resp.Status != 503 {
			t.Errorf("%s: expected 503, got %d", path, resp.Status)
		}
	}
	if resp := get(t, app, "/v1/ready"); resp.Status != 503 {
		t.Errorf("ready: expected 503, got %d", resp.Status)
	}
}

func TestRefresh_FailureKeepsCatalog(t *testing.T) {
	src := &mockSource{}
	app := setupApp(makeDeps(t, src, true))

	src.fetchFn = func(ctx context.Context) (*domain.SourceDocument, error) {
		return nil, errors.New("connection refused")
	}
	resp, err := app.Test(httptest.NewRequest("POST", "/v1/trails/refresh", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}

	var result trailPage
	get(t, app, "/v1/trails").decode(t, &result)
	if result.Pagination.Total != 4 {
		t.Errorf("previous catalog should survive, got %d trails", result.Pagination.Total)
	}
}

func TestReady(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	resp := get(t, app, "/v1/ready")
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.Status, resp.Body)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	resp.decode(t, &body)
	if body.Checks["catalog"] != "ok" || body.Checks["database"] != "not configured" {
		t.Errorf("unexpected checks %v", body.Checks)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	first := get(t, app, "/v1/trails/stats")
	etag := first.Header("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}
	if second := get(t, app, "/v1/trails/stats", "If-None-Match", etag); second.Status != 304 {
		t.Errorf("expected 304, got %d", second.Status)
	}
}

func TestGraphQL(t *testing.T) {
	app := setupApp(makeDeps(t, &mockSource{}, true))

	body := `{"query":"{ trails(classification: \"hard\") { id style { strokeColor strokeWeight } } stats { total errors } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Trails []struct {
				ID    string `json:"id"`
				Style struct {
					StrokeColor  string `json:"strokeColor"`
					StrokeWeight int    `json:"strokeWeight"`
				} `json:"style"`
			} `json:"trails"`
			Stats struct {
				Total  int `json:"total"`
				Errors int `json:"errors"`
			} `json:"stats"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	if len(result.Data.Trails) != 1 || result.Data.Trails[0].ID != "seorak" {
		t.Fatalf("unexpected trails %+v", result.Data.Trails)
	}
	if s := result.Data.Trails[0].Style; s.StrokeColor != "#F44336" || s.StrokeWeight != 5 {
		t.Errorf("unexpected style %+v", s)
	}
	if result.Data.Stats.Total != 4 || result.Data.Stats.Errors != 1 {
		t.Errorf("unexpected stats %+v", result.Data.Stats)
	}
}
