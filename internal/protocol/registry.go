package protocol

import (
	"fmt"
	"strings"
)

// Registry is the immutable table of operations an Engine dispatches on.
type Registry struct {
	ops   map[string]*Operation
	order []string
}

// NewRegistry validates every operation and builds the table.
// A malformed definition fails here instead of producing a wrong command later.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]*Operation, len(ops))}
	for i := range ops {
		op := ops[i]
		if err := op.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.ops[op.Name]; dup {
			return nil, fmt.Errorf("%w %q: duplicate name", ErrInvalidOperation, op.Name)
		}
		op = op.clone()
		r.ops[op.Name] = &op
		r.order = append(r.order, op.Name)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables; it panics on a bad definition.
func MustRegistry(ops ...Operation) *Registry {
	r, err := NewRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns a copy of the operation registered under name. Names are
// case insensitive and '-' is accepted for '_'.
func (r *Registry) Lookup(name string) (Operation, error) {
	op, err := r.lookup(name)
	if err != nil {
		return Operation{}, err
	}
	return op.clone(), nil
}

func (r *Registry) lookup(name string) (*Operation, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	op, ok := r.ops[key]
	if !ok {
		return nil, &UnknownOperationError{Name: name}
	}
	return op, nil
}

// Operations returns copies of all operations in registration order.
func (r *Registry) Operations() []Operation {
	out := make([]Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name].clone())
	}
	return out
}

// Names returns the operation names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// clone copies op including its range and enum items.
func (op Operation) clone() Operation {
	if op.Enum != nil {
		op.Enum = append([]EnumItem(nil), op.Enum...)
	}
	if op.Range != nil {
		rng := *op.Range
		op.Range = &rng
	}
	return op
}
