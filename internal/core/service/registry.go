package service

import (
	"fmt"
	"sync"

	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

// ComponentRegistry holds the pluggable adapters: declared-template sources,
// observed-state sources and report renderers, each keyed by type name.
type ComponentRegistry struct {
	mu              sync.RWMutex
	declaredSources map[string]ports.DeclaredSource
	observedSources map[string]ports.ObservedSource
	reporters       map[string]ports.Reporter
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		declaredSources: make(map[string]ports.DeclaredSource),
		observedSources: make(map[string]ports.ObservedSource),
		reporters:       make(map[string]ports.Reporter),
	}
}

func (r *ComponentRegistry) RegisterDeclaredSource(source ports.DeclaredSource) error {
	if source == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil declared source")
	}
	sourceType := source.Type()
	if sourceType == "" {
		return errors.New(errors.CodeInternal, "declared source type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.declaredSources[sourceType]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("declared source type %q already registered", sourceType))
	}
	r.declaredSources[sourceType] = source
	return nil
}

func (r *ComponentRegistry) GetDeclaredSource(sourceType string) (ports.DeclaredSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.declaredSources[sourceType]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("declared source type %q not found", sourceType))
	}
	return source, nil
}

func (r *ComponentRegistry) RegisterObservedSource(source ports.ObservedSource) error {
	if source == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil observed source")
	}
	sourceType := source.Type()
	if sourceType == "" {
		return errors.New(errors.CodeInternal, "observed source type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.observedSources[sourceType]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("observed source type %q already registered", sourceType))
	}
	r.observedSources[sourceType] = source
	return nil
}

func (r *ComponentRegistry) GetObservedSource(sourceType string) (ports.ObservedSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.observedSources[sourceType]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("observed source type %q not found", sourceType))
	}
	return source, nil
}

func (r *ComponentRegistry) RegisterReporter(name string, reporter ports.Reporter) error {
	if reporter == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil reporter")
	}
	if name == "" {
		return errors.New(errors.CodeInternal, "reporter name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reporters[name]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("reporter %q already registered", name))
	}
	r.reporters[name] = reporter
	return nil
}

func (r *ComponentRegistry) GetReporter(name string) (ports.Reporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reporter, exists := r.reporters[name]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("reporter %q not found", name))
	}
	return reporter, nil
}
