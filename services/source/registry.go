package source

// Registry dispatches source tags to adapters.
type Registry struct {
	adapters []Adapter
	byTag    map[Source]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		byTag: map[Source]Adapter{},
	}
}

// Register adds an adapter under its own tag and any alias tags it also serves.
// A nil adapter is ignored.
func (s *Registry) Register(a Adapter, aliases ...Source) *Registry {
	if a == nil {
		return s
	}
	s.adapters = append(s.adapters, a)
	s.byTag[a.Source()] = a
	for _, al := range aliases {
		s.byTag[al] = a
	}
	return s
}

// Get returns ErrUnsupportedSource for tags without an adapter.
func (s *Registry) Get(tag Source) (Adapter, error) {
	a, ok := s.byTag[tag]
	if !ok {
		return nil, Unsupported(tag)
	}
	return a, nil
}

// Canonical returns the tag of the adapter serving tag, or tag itself when none is registered.
func (s *Registry) Canonical(tag Source) Source {
	if a, ok := s.byTag[tag]; ok {
		return a.Source()
	}
	return tag
}

// Adapters lists distinct adapters in registration order.
func (s *Registry) Adapters() []Adapter {
	return s.adapters
}

// Configured lists adapters whose credential is present.
func (s *Registry) Configured() []Adapter {
	var res []Adapter
	for _, a := range s.adapters {
		if a.Configured() {
			res = append(res, a)
		}
	}
	return res
}
