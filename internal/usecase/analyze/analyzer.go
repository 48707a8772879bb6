// Package analyze orchestrates code analysis over a repository: it
// discovers files, chooses between the agent-backed path and the static
// analyzer roster, fans analyzers out in batches, and post-processes the
// combined findings.
package analyze

import (
	"context"
	"fmt"
	"sync"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Analyzer is the plugin contract every static analyzer implements.
type Analyzer interface {
	// Name is the registry key and the value recorded in AnalyzersRun.
	Name() string

	// Category is the issue category this analyzer reports.
	Category() domain.Category

	Description() string

	// Analyze inspects the given root-relative files and returns findings.
	// A failed analyzer returns an error; it never panics by contract, but
	// the orchestrator guards against panics anyway.
	Analyze(ctx context.Context, files []string, opts Options) ([]domain.Issue, error)
}

// Options carries per-run knobs passed down to each analyzer.
type Options struct {
	// Root is the repository root the file paths are relative to.
	Root string

	// FocusAreas optionally narrows attention to named concerns.
	FocusAreas []string
}

// Manifest describes a registered analyzer. All three fields are
// required; registration with an incomplete manifest is a programmer
// error and is rejected.
type Manifest struct {
	Name        string
	Version     string
	Description string
}

// Validate reports the first missing required field.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("analyzer manifest missing required field: name")
	}
	if m.Version == "" {
		return fmt.Errorf("analyzer manifest missing required field: version")
	}
	if m.Description == "" {
		return fmt.Errorf("analyzer manifest missing required field: description")
	}
	return nil
}

type registration struct {
	manifest Manifest
	analyzer Analyzer
}

// Registry holds the static analyzer roster. It is an explicitly
// constructed object, not process-global state, so tests can build
// isolated instances.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]registration
	order []string
}

// NewRegistry creates an empty analyzer registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]registration)}
}

// Register validates the manifest and adds the analyzer to the roster.
// Registering a nil analyzer or a duplicate name is rejected.
func (r *Registry) Register(manifest Manifest, analyzer Analyzer) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	if analyzer == nil {
		return fmt.Errorf("analyzer %s does not implement the analyze contract", manifest.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[manifest.Name]; exists {
		return fmt.Errorf("analyzer %s already registered", manifest.Name)
	}
	r.byKey[manifest.Name] = registration{manifest: manifest, analyzer: analyzer}
	r.order = append(r.order, manifest.Name)
	return nil
}

// Unregister removes an analyzer by name. Unknown names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[name]; !exists {
		return
	}
	delete(r.byKey, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the analyzer registered under name.
func (r *Registry) Get(name string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byKey[name]
	if !ok {
		return nil, false
	}
	return reg.analyzer, true
}

// List returns analyzers in registration order.
func (r *Registry) List() []Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Analyzer, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byKey[name].analyzer)
	}
	return out
}

// ByCategory returns analyzers reporting the given category, in
// registration order.
func (r *Registry) ByCategory(category domain.Category) []Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Analyzer
	for _, name := range r.order {
		if r.byKey[name].analyzer.Category() == category {
			out = append(out, r.byKey[name].analyzer)
		}
	}
	return out
}

// Manifests returns the registered manifests in registration order.
func (r *Registry) Manifests() []Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Manifest, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byKey[name].manifest)
	}
	return out
}
