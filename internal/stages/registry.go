package stages

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/stagegraph/internal/engine"
)

// Registry — реестр определений stage.
//
// Определение доступно по типу и по каждому из своих алиасов.
// Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	stages  map[string]engine.StageDefinition
	aliases map[string]string
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		stages:  make(map[string]engine.StageDefinition),
		aliases: make(map[string]string),
	}
}

// Register регистрирует определение.
// Определение с тем же типом перезаписывается. Ошибка — алиас, занятый
// другим типом, и тип, совпадающий с чужим алиасом.
func (r *Registry) Register(def engine.StageDefinition) error {
	stageType := def.Type()
	if stageType == "" {
		return ErrEmptyType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.aliases[stageType]; ok && owner != stageType {
		return fmt.Errorf("%w: %s is an alias of %s", ErrAliasConflict, stageType, owner)
	}
	for _, alias := range def.Aliases() {
		if owner, ok := r.aliases[alias]; ok && owner != stageType {
			return fmt.Errorf("%w: %s is used by %s", ErrAliasConflict, alias, owner)
		}
		if _, ok := r.stages[alias]; ok && alias != stageType {
			return fmt.Errorf("%w: %s is a stage type", ErrAliasConflict, alias)
		}
	}

	r.dropAliases(stageType)
	r.stages[stageType] = def
	for _, alias := range def.Aliases() {
		if alias != stageType {
			r.aliases[alias] = stageType
		}
	}
	return nil
}

// MustRegister — Register, который паникует при ошибке.
// Для регистрации встроенных stages при старте.
func (r *Registry) MustRegister(def engine.StageDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get возвращает определение по типу или алиасу.
func (r *Registry) Get(typeOrAlias string) (engine.StageDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.stages[typeOrAlias]; ok {
		return def, nil
	}
	if stageType, ok := r.aliases[typeOrAlias]; ok {
		return r.stages[stageType], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrStageNotFound, typeOrAlias)
}

// Has проверяет, известен ли тип или алиас.
func (r *Registry) Has(typeOrAlias string) bool {
	_, err := r.Get(typeOrAlias)
	return err == nil
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.stages))
	for t := range r.stages {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных типов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stages)
}

// Unregister удаляет тип вместе с его алиасами.
func (r *Registry) Unregister(stageType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropAliases(stageType)
	delete(r.stages, stageType)
}

// dropAliases удаляет алиасы типа. Вызывается под r.mu.
func (r *Registry) dropAliases(stageType string) {
	for alias, owner := range r.aliases {
		if owner == stageType {
			delete(r.aliases, alias)
		}
	}
}

// DefaultRegistry создаёт реестр со встроенными stages: runJob и echo.
func DefaultRegistry(runJob RunJobConfig) (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(NewRunJob(runJob)); err != nil {
		return nil, err
	}
	if err := r.Register(NewEcho(runJob.Logger)); err != nil {
		return nil, err
	}
	return r, nil
}
