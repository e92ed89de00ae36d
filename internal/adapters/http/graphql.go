package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

func pointMap(p domain.Point) map[string]any {
	return map[string]any{"lat": p.Lat, "lon": p.Lon}
}

func trailMap(e domain.PathEntity) map[string]any {
	s := summarize(e)
	points := make([]any, len(e.Points))
	for i, p := range e.Points {
		points[i] = pointMap(p)
	}
	return map[string]any{
		"id":             s.ID,
		"name":           s.Name,
		"classification": string(s.Classification),
		"lengthM":        s.LengthM,
		"pointCount":     s.PointCount,
		"points":         points,
		"style": map[string]any{
			"strokeColor":   e.Style.StrokeColor,
			"strokeWeight":  e.Style.StrokeWeight,
			"strokeOpacity": e.Style.StrokeOpacity,
			"strokeDash":    string(e.Style.StrokeDash),
		},
	}
}

// buildSchema creates the GraphQL schema wired to the catalog.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	styleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Style",
		Fields: graphql.Fields{
			"strokeColor":   &graphql.Field{Type: graphql.String},
			"strokeWeight":  &graphql.Field{Type: graphql.Int},
			"strokeOpacity": &graphql.Field{Type: graphql.Float},
			"strokeDash":    &graphql.Field{Type: graphql.String},
		},
	})

	trailType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trail",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"name":           &graphql.Field{Type: graphql.String},
			"classification": &graphql.Field{Type: graphql.String},
			"lengthM":        &graphql.Field{Type: graphql.Float},
			"pointCount":     &graphql.Field{Type: graphql.Int},
			"style":          &graphql.Field{Type: styleType},
			"points":         &graphql.Field{Type: graphql.NewList(pointType)},
		},
	})

	countType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ClassificationCount",
		Fields: graphql.Fields{
			"classification": &graphql.Field{Type: graphql.String},
			"count":          &graphql.Field{Type: graphql.Int},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CatalogStats",
		Fields: graphql.Fields{
			"total":            &graphql.Field{Type: graphql.Int},
			"totalDistance":    &graphql.Field{Type: graphql.Float},
			"averageDistance":  &graphql.Field{Type: graphql.Float},
			"totalLengthM":     &graphql.Field{Type: graphql.Float},
			"errors":           &graphql.Field{Type: graphql.Int},
			"byClassification": &graphql.Field{Type: graphql.NewList(countType)},
		},
	})

	windowType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ListWindow",
		Fields: graphql.Fields{
			"startIndex":  &graphql.Field{Type: graphql.Int},
			"endIndex":    &graphql.Field{Type: graphql.Int},
			"totalHeight": &graphql.Field{Type: graphql.Int},
			"trails":      &graphql.Field{Type: graphql.NewList(trailType)},
		},
	})

	statsResolver := func() map[string]any {
		st := deps.Catalog.Stats()
		counts := make([]any, 0, len(domain.Classifications))
		for _, c := range domain.Classifications {
			counts = append(counts, map[string]any{"classification": string(c), "count": st.ByClassification[c]})
		}
		errs := 0
		if cat := deps.Catalog.Current(); cat != nil {
			errs = len(cat.Errors)
		}
		return map[string]any{
			"total":            st.Total,
			"totalDistance":    st.TotalDistance,
			"averageDistance":  st.AverageDistance,
			"totalLengthM":     st.TotalLengthM,
			"errors":           errs,
			"byClassification": counts,
		}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"trails": &graphql.Field{
				Type:        graphql.NewList(trailType),
				Description: "List trails, optionally filtered by classification",
				Args: graphql.FieldConfigArgument{
					"classification": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"offset":         &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":          &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tag := p.Args["classification"].(string)
					pg := Pagination{Offset: max(p.Args["offset"].(int), 0), Limit: max(p.Args["limit"].(int), 0)}
					var out []any
					for _, e := range page(deps.Catalog.FilterByClassification(tag), pg) {
						out = append(out, trailMap(e))
					}
					return out, nil
				},
			},
			"trail": &graphql.Field{
				Type:        trailType,
				Description: "Get a trail by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					e, err := deps.Catalog.GetByID(p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return trailMap(*e), nil
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Catalog summary",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return statsResolver(), nil
				},
			},
			"window": &graphql.Field{
				Type:        windowType,
				Description: "Virtualized list window over the catalog",
				Args: graphql.FieldConfigArgument{
					"classification": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"itemHeight":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: deps.List.ItemHeight},
					"scroll":         &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"viewport":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: deps.List.ViewportHeight},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					w, entities := deps.Catalog.Window(
						p.Args["classification"].(string),
						p.Args["itemHeight"].(int),
						p.Args["scroll"].(int),
						p.Args["viewport"].(int),
					)
					trails := make([]any, len(entities))
					for i, e := range entities {
						trails[i] = trailMap(e)
					}
					return map[string]any{
						"startIndex":  w.StartIndex,
						"endIndex":    w.EndIndex,
						"totalHeight": w.TotalHeight,
						"trails":      trails,
					}, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"refreshCatalog": &graphql.Field{
				Type:        statsType,
				Description: "Reload the catalog from its source",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := deps.Catalog.Refresh(p.Context); err != nil {
						return nil, err
					}
					return statsResolver(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
