package cosmos

// Query is a parameterized SQL query.
type Query struct {
	Query      string           `json:"query"                yaml:"query"`
	Parameters []QueryParameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// QueryParameter binds a named parameter such as "@id".
type QueryParameter struct {
	Name  string      `json:"name"  yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}

// NewQuery creates a query without parameters.
func NewQuery(query string) *Query {
	return &Query{
		Query:      query,
		Parameters: make([]QueryParameter, 0),
	}
}

// WithParameter binds a parameter value.
func (q *Query) WithParameter(name string, value interface{}) *Query {
	q.Parameters = append(q.Parameters, QueryParameter{Name: name, Value: value})

	return q
}
