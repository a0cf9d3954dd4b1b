package dao

// Parameter narrows a List call, e.g. to workflows in a given status.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter builds a filter parameter; a single value stays scalar,
// multiple values become a set the record may match any member of.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
