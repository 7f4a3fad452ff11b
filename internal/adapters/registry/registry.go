// Package registry сопоставляет тип провайдера и адаптер.
package registry

import (
	"fmt"
	"sync"

	"devfeed/internal/domain"
)

// Registry реализует domain.AdapterRegistry и безопасен для конкурентного использования.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.ProviderType]domain.ProviderAdapter
}

// New создаёт реестр и регистрирует переданные адаптеры.
func New(adapters ...domain.ProviderAdapter) (*Registry, error) {
	r := &Registry{adapters: make(map[domain.ProviderType]domain.ProviderAdapter, len(adapters))}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register добавляет адаптер. Повторная регистрация провайдера возвращает ошибку.
func (r *Registry) Register(a domain.ProviderAdapter) error {
	if a == nil {
		return fmt.Errorf("registry: nil adapter")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := a.Provider()
	if _, exists := r.adapters[p]; exists {
		return fmt.Errorf("registry: provider %s already registered", p)
	}
	r.adapters[p] = a
	return nil
}

// Adapter возвращает адаптер провайдера.
func (r *Registry) Adapter(p domain.ProviderType) (domain.ProviderAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	return a, ok
}

// Providers возвращает зарегистрированных провайдеров в порядке domain.ProviderTypes,
// затем остальные.
func (r *Registry) Providers() []domain.ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ProviderType, 0, len(r.adapters))
	known := make(map[domain.ProviderType]struct{}, len(domain.ProviderTypes))
	for _, p := range domain.ProviderTypes {
		known[p] = struct{}{}
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	for p := range r.adapters {
		if _, ok := known[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

var _ domain.AdapterRegistry = (*Registry)(nil)
