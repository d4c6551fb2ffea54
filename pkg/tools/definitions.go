package tools

// Definition describes one tool for callers that introspect the operation
// surface before invoking it.
type Definition struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional,omitempty"`
	Result      string   `json:"result"`
}

// Definitions returns the static catalog of supported tools.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        "create",
			Description: "Create one record and return its id.",
			Required:    []string{"instance_id", "model", "values"},
			Result:      "id (integer)",
		},
		{
			Name:        "read",
			Description: "Read records by id.",
			Required:    []string{"instance_id", "model", "ids"},
			Optional:    []string{"fields"},
			Result:      "list of record maps",
		},
		{
			Name:        "search",
			Description: "Return ids of records matching a search domain.",
			Required:    []string{"instance_id", "model"},
			Optional:    []string{"domain", "limit", "offset", "order"},
			Result:      "list of ids",
		},
		{
			Name:        "search_read",
			Description: "Search and read matching records in one round-trip.",
			Required:    []string{"instance_id", "model"},
			Optional:    []string{"domain", "fields", "limit", "offset", "order"},
			Result:      "list of record maps",
		},
		{
			Name:        "update",
			Description: "Write values onto records by id.",
			Required:    []string{"instance_id", "model", "ids", "values"},
			Result:      "boolean",
		},
		{
			Name:        "delete",
			Description: "Delete records by id.",
			Required:    []string{"instance_id", "model", "ids"},
			Result:      "boolean",
		},
		{
			Name:        "execute",
			Description: "Invoke an arbitrary model method (escape hatch).",
			Required:    []string{"instance_id", "model", "method"},
			Optional:    []string{"args", "kwargs"},
			Result:      "backend-defined",
		},
		{
			Name:        "fields_get",
			Description: "Return the model's field definitions.",
			Required:    []string{"instance_id", "model"},
			Optional:    []string{"fields"},
			Result:      "field-definition map",
		},
		{
			Name:        "search_count",
			Description: "Count records matching a search domain.",
			Required:    []string{"instance_id", "model"},
			Optional:    []string{"domain"},
			Result:      "integer",
		},
	}
}
