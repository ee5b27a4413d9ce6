package http

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to the session service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	fieldType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Field",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"value": &graphql.Field{Type: graphql.String},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Property",
		Fields: graphql.Fields{
			"name":      &graphql.Field{Type: graphql.String},
			"latitude":  &graphql.Field{Type: graphql.String},
			"longitude": &graphql.Field{Type: graphql.String},
			"price":     &graphql.Field{Type: graphql.String},
			"fields":    &graphql.Field{Type: graphql.NewList(fieldType)},
		},
	})

	matchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Match",
		Fields: graphql.Fields{
			"index":    &graphql.Field{Type: graphql.Int},
			"distance": &graphql.Field{Type: graphql.Float},
			"selected": &graphql.Field{Type: graphql.Boolean},
			"record":   &graphql.Field{Type: recordType},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"state":           &graphql.Field{Type: graphql.String},
			"source":          &graphql.Field{Type: graphql.String},
			"records":         &graphql.Field{Type: graphql.Int},
			"valid_records":   &graphql.Field{Type: graphql.Int},
			"reference_index": &graphql.Field{Type: graphql.Int},
			"reference":       &graphql.Field{Type: recordType},
			"radius":          &graphql.Field{Type: graphql.Float},
			"unit":            &graphql.Field{Type: graphql.String},
			"selected":        &graphql.Field{Type: graphql.Int},
		},
	})

	sessionArg := graphql.FieldConfigArgument{
		"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Current state of a browsing session",
				Args:        sessionArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sum, err := deps.Sessions.Get(p.Context, p.Args["session_id"].(string))
					if err != nil {
						return nil, err
					}
					return gqlSession(sum), nil
				},
			},
			"proximity": &graphql.Field{
				Type:        graphql.NewList(matchType),
				Description: "Properties within the radius of the reference",
				Args:        sessionArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res, err := deps.Sessions.Proximity(p.Context, p.Args["session_id"].(string))
					if err != nil {
						return nil, err
					}
					return gqlMatches(res.Results), nil
				},
			},
			"search": &graphql.Field{
				Type:        graphql.NewList(matchType),
				Description: "Find reference candidates by name",
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultSearchLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					matches, err := deps.Sessions.Search(p.Context,
						p.Args["session_id"].(string), p.Args["query"].(string), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return gqlMatches(matches), nil
				},
			},
			"selection": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "Selected properties in selection order",
				Args:        sessionArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					records, err := deps.Sessions.Selection(p.Context, p.Args["session_id"].(string))
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(records))
					for i, r := range records {
						out[i] = gqlRecord(r)
					}
					return out, nil
				},
			},
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance between two points",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewInputObject(graphql.InputObjectConfig{
						Name: "FromPoint",
						Fields: graphql.InputObjectConfigFieldMap{
							"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
							"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
						},
					}))},
					"to": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewInputObject(graphql.InputObjectConfig{
						Name: "ToPoint",
						Fields: graphql.InputObjectConfigFieldMap{
							"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
							"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
						},
					}))},
					"unit": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.UnitKm)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					unit, err := domain.ParseUnit(p.Args["unit"].(string))
					if err != nil {
						return nil, err
					}
					return usecases.Distance(gqlPoint(p.Args["from"]), gqlPoint(p.Args["to"]), unit), nil
				},
			},
			"mapCenter": &graphql.Field{
				Type:        geoPointType,
				Description: "Where the map is centred for a session",
				Args:        sessionArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					view, err := deps.Sessions.MapView(p.Context, p.Args["session_id"].(string))
					if err != nil {
						return nil, err
					}
					return view.Center, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"chooseReference": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"index":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sum, err := deps.Sessions.ChooseReference(p.Context, p.Args["session_id"].(string), p.Args["index"].(int))
					if err != nil {
						return nil, err
					}
					return gqlSession(sum), nil
				},
			},
			"toggleSelection": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"session_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"index":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.ToggleSelection(p.Context, p.Args["session_id"].(string), p.Args["index"].(int))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func gqlPoint(v interface{}) domain.GeoPoint {
	m, _ := v.(map[string]interface{})
	lat, _ := m["lat"].(float64)
	lon, _ := m["lon"].(float64)
	return domain.GeoPoint{Lat: lat, Lon: lon}
}

func gqlRecord(r domain.Record) map[string]interface{} {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]map[string]interface{}, len(keys))
	for i, k := range keys {
		fields[i] = map[string]interface{}{"key": k, "value": r.Fields[k]}
	}
	return map[string]interface{}{
		"name":      r.Name,
		"latitude":  r.Latitude,
		"longitude": r.Longitude,
		"price":     r.Price,
		"fields":    fields,
	}
}

func gqlMatches(matches []domain.RecordMatch) []map[string]interface{} {
	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		row := map[string]interface{}{
			"index":    m.Index,
			"selected": m.Selected,
			"record":   gqlRecord(m.Record),
		}
		if m.Distance != nil {
			row["distance"] = *m.Distance
		}
		out[i] = row
	}
	return out
}

func gqlSession(sum domain.SessionSummary) map[string]interface{} {
	m := map[string]interface{}{
		"id":            sum.ID,
		"state":         string(sum.State),
		"source":        sum.Source,
		"records":       sum.Records,
		"valid_records": sum.ValidRecords,
		"radius":        sum.Radius,
		"unit":          string(sum.Unit),
		"selected":      sum.Selected,
	}
	if sum.ReferenceIndex != nil {
		m["reference_index"] = *sum.ReferenceIndex
	}
	if sum.Reference != nil {
		m["reference"] = gqlRecord(*sum.Reference)
	}
	return m
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
