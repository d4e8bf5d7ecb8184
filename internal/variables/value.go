package variables

import (
	"encoding/json"
	"fmt"

	"github.com/wzt1001/lightrag-on-aws/internal/api"
)

// Kind discriminates scalar prompt variables from list-valued ones.
type Kind int

const (
	KindScalar Kind = iota
	KindList
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	if k == KindList {
		return api.VariableTypeList
	}
	return api.VariableTypeString
}

// Value is the typed current value of a prompt variable. Exactly two
// implementations exist, one per kind; the shape of any edit buffer is
// derived from the active variant.
type Value interface {
	Kind() Kind
}

// ScalarValue is a single text value.
type ScalarValue string

// Kind implements Value.
func (ScalarValue) Kind() Kind { return KindScalar }

// ListValue is an ordered sequence of text entries.
type ListValue []string

// Kind implements Value.
func (ListValue) Kind() Kind { return KindList }

// Variable is one typed prompt variable owned by a context.
type Variable struct {
	Name  string
	Value Value
}

// decodeVariable converts a wire variable into its typed form.
func decodeVariable(raw api.PromptVariable) (Variable, error) {
	switch raw.Type {
	case api.VariableTypeList:
		var items []string
		if err := json.Unmarshal(raw.Value, &items); err != nil {
			return Variable{}, fmt.Errorf("variable %s: list value malformed: %w", raw.Name, err)
		}
		return Variable{Name: raw.Name, Value: ListValue(items)}, nil
	case api.VariableTypeString, "":
		var text string
		if err := json.Unmarshal(raw.Value, &text); err != nil {
			return Variable{}, fmt.Errorf("variable %s: scalar value malformed: %w", raw.Name, err)
		}
		return Variable{Name: raw.Name, Value: ScalarValue(text)}, nil
	default:
		return Variable{}, fmt.Errorf("variable %s: unknown type %q", raw.Name, raw.Type)
	}
}

// wireValue converts a typed value back into the update endpoint's shape.
func wireValue(v Value) any {
	switch tv := v.(type) {
	case ListValue:
		return []string(tv)
	case ScalarValue:
		return string(tv)
	default:
		return nil
	}
}
