package providers

import (
	"github.com/shaiso/stagegraph/internal/decorator"
	"github.com/shaiso/stagegraph/internal/domain"
)

// Default возвращает реестр со всеми встроенными providers.
// promote передаётся в Kubernetes decorator.
func Default(promote domain.Task) *decorator.Registry {
	return decorator.NewRegistry(
		NewKubernetes(promote),
		NewTitus(),
	)
}
