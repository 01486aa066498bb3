package scanner

import (
	"context"
	"fmt"

	"ESOAnnouncements/internal/domain"
)

// Scanner captures one announcement source (blog, forum).
type Scanner interface {
	Name() string
	Scan(ctx context.Context) ([]domain.Announcement, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

// ResolveAll resolves names in order, failing on the first unknown one.
func (r *Registry) ResolveAll(names []string) ([]Scanner, error) {
	out := make([]Scanner, 0, len(names))
	for _, name := range names {
		s, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
