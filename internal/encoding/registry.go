package encoding

import "fmt"

// Registry is an ordered, name-unique collection of encoders.
type Registry struct {
	order  []string
	byName map[string]Encoder
}

func NewRegistry(encoders ...Encoder) (*Registry, error) {
	r := &Registry{byName: make(map[string]Encoder)}
	for _, enc := range encoders {
		if err := r.Register(enc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(enc Encoder) error {
	if _, ok := r.byName[enc.Name()]; ok {
		return fmt.Errorf("%q: %w", enc.Name(), ErrDuplicateEncoding)
	}
	r.byName[enc.Name()] = enc
	r.order = append(r.order, enc.Name())
	return nil
}

func (r *Registry) Get(name string) (Encoder, bool) {
	enc, ok := r.byName[name]
	return enc, ok
}

// All returns the encoders in registration order.
func (r *Registry) All() []Encoder {
	out := make([]Encoder, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int { return len(r.order) }
