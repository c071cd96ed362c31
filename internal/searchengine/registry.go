package searchengine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/annosearch/internal/domain"
)

// Factory constructs an engine for a backend.
type Factory func(ctx context.Context, cfg Config, logger *zap.Logger) (SearchEngine, error)

// Registration binds a backend name to its factory.
type Registration struct {
	Name    string
	Factory Factory
}

// Registry is an immutable name to factory table.
type Registry struct {
	names     []string
	factories map[string]Factory
}

// NewRegistry builds a registry. Registration order is kept for Names.
// Duplicate or empty names are programming errors and panic.
func NewRegistry(regs ...Registration) *Registry {
	r := &Registry{factories: make(map[string]Factory, len(regs))}
	for _, reg := range regs {
		if reg.Name == "" || reg.Factory == nil {
			panic("searchengine: registration needs a name and a factory")
		}
		if _, dup := r.factories[reg.Name]; dup {
			panic(fmt.Sprintf("searchengine: backend %q registered twice", reg.Name))
		}
		r.names = append(r.names, reg.Name)
		r.factories[reg.Name] = reg.Factory
	}
	return r
}

// Names returns the registered backend names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Open constructs the named engine. The caller owns it and must Close it.
func (r *Registry) Open(ctx context.Context, name string, cfg Config, logger *zap.Logger) (SearchEngine, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, &domain.UnknownBackendError{Name: name, Known: r.Names()}
	}
	eng, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s engine: %w", name, err)
	}
	return eng, nil
}

// With opens the named engine, runs fn and closes the engine whatever fn returns.
func (r *Registry) With(
	ctx context.Context, name string, cfg Config, logger *zap.Logger,
	fn func(ctx context.Context, eng SearchEngine) error,
) (err error) {
	eng, err := r.Open(ctx, name, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s engine: %w", name, cerr))
		}
	}()
	return fn(ctx, eng)
}
