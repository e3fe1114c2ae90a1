package decorator

import (
	"github.com/shaiso/stagegraph/internal/domain"
)

// Registry — упорядоченный набор decorators.
//
// При поиске побеждает первый decorator, который поддерживает
// дискриминатор: порядок регистрации задаёт приоритет.
type Registry struct {
	decorators []Decorator
}

// NewRegistry создаёт реестр. nil-элементы пропускаются.
func NewRegistry(decorators ...Decorator) *Registry {
	list := make([]Decorator, 0, len(decorators))
	for _, d := range decorators {
		if d != nil {
			list = append(list, d)
		}
	}
	return &Registry{decorators: list}
}

// Resolve возвращает первый decorator, поддерживающий discriminator.
// Пустой дискриминатор никогда не резолвится.
func (r *Registry) Resolve(discriminator string) (Decorator, bool) {
	if r == nil || discriminator == "" {
		return nil, false
	}
	for _, d := range r.decorators {
		if d.Supports(discriminator) {
			return d, true
		}
	}
	return nil, false
}

// ResolveStage резолвит decorator по cloudProvider из контекста stage.
func (r *Registry) ResolveStage(stage *domain.Stage) (Decorator, bool) {
	if stage == nil {
		return nil, false
	}
	return r.Resolve(stage.Context.CloudProvider())
}

// Augmenter возвращает GraphAugmenter для stage, если он есть.
func (r *Registry) Augmenter(stage *domain.Stage) (GraphAugmenter, bool) {
	d, ok := r.ResolveStage(stage)
	if !ok {
		return nil, false
	}
	a, ok := d.(GraphAugmenter)
	return a, ok
}

// CleanupRewriter возвращает CleanupRewriter для провайдера, если он есть.
func (r *Registry) CleanupRewriter(cloudProvider string) (CleanupRewriter, bool) {
	d, ok := r.Resolve(cloudProvider)
	if !ok {
		return nil, false
	}
	c, ok := d.(CleanupRewriter)
	return c, ok
}

// Len возвращает количество decorators.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.decorators)
}
