// Package repo sits between the engine services and the directory. It owns
// the in-memory hierarchy graphs (one per tenant and hierarchy type, built
// lazily from stored relationships) and a cache-aside wrapper over the
// directory for hot entity reads.
package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/platformbuilds/sentra-core/internal/hier"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
	"github.com/platformbuilds/sentra-core/internal/store"
)

// Registry hands out hierarchy graphs keyed by tenant and hierarchy type.
// Graphs are built on first use from the stored relationship list and kept
// until a structural write or an explicit rebuild drops them.
//
// Structural writes (AddRelationship, RemoveRelationship) serialize per
// graph: validation, persistence and the in-memory edge mutation happen
// under one exclusive lock so readers never observe a half-applied change.
type Registry struct {
	store  store.Directory
	logger logging.Logger

	mu     sync.RWMutex
	graphs map[string]*hier.Graph

	writeMu sync.Mutex
	writers map[string]*sync.Mutex
}

func NewRegistry(st store.Directory, log logging.Logger) *Registry {
	return &Registry{
		store:   st,
		logger:  log,
		graphs:  make(map[string]*hier.Graph),
		writers: make(map[string]*sync.Mutex),
	}
}

func graphKey(tenantID, hierarchy string) string {
	return tenantID + "/" + hierarchy
}

// Graph returns the cached graph for the tenant and hierarchy type, building
// it from stored relationships when absent.
func (r *Registry) Graph(ctx context.Context, tenantID, hierarchy string) (*hier.Graph, error) {
	key := graphKey(tenantID, hierarchy)

	r.mu.RLock()
	g, ok := r.graphs[key]
	r.mu.RUnlock()
	if ok {
		return g, nil
	}

	rels, err := r.store.GetRelationships(ctx, tenantID, hierarchy)
	if err != nil {
		return nil, fmt.Errorf("load %s relationships: %w", hierarchy, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another goroutine may have built it while we loaded
	if g, ok := r.graphs[key]; ok {
		return g, nil
	}
	g = hier.BuildGraph(rels, r.logger)
	r.graphs[key] = g
	monitoring.RecordGraphRebuild(hierarchy, tenantID)
	return g, nil
}

// Rebuild drops the cached graph and reconstructs it from storage.
func (r *Registry) Rebuild(ctx context.Context, tenantID, hierarchy string) error {
	rels, err := r.store.GetRelationships(ctx, tenantID, hierarchy)
	if err != nil {
		return fmt.Errorf("reload %s relationships: %w", hierarchy, err)
	}

	r.mu.Lock()
	r.graphs[graphKey(tenantID, hierarchy)] = hier.BuildGraph(rels, r.logger)
	r.mu.Unlock()
	monitoring.RecordGraphRebuild(hierarchy, tenantID)
	return nil
}

// OnHierarchyChanged is the post-commit hook administrative writes call after
// changing stored relationships outside AddRelationship/RemoveRelationship.
// A rebuild failure leaves the previous graph serving reads.
func (r *Registry) OnHierarchyChanged(ctx context.Context, tenantID, hierarchy string) {
	if err := r.Rebuild(ctx, tenantID, hierarchy); err != nil {
		r.logger.Error("Hierarchy graph rebuild failed",
			"tenant", tenantID, "hierarchy", hierarchy, "error", err)
	}
}

func (r *Registry) writer(key string) *sync.Mutex {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	m, ok := r.writers[key]
	if !ok {
		m = &sync.Mutex{}
		r.writers[key] = m
	}
	return m
}

// AddRelationship validates the new (child, parent) edge against the current
// graph, persists the extended relationship list, then applies the edge in
// memory. With mustExist set, both ends must already be present in the graph.
func (r *Registry) AddRelationship(ctx context.Context, tenantID, hierarchy, child, parent string, mustExist bool) error {
	key := graphKey(tenantID, hierarchy)
	w := r.writer(key)
	w.Lock()
	defer w.Unlock()

	g, err := r.Graph(ctx, tenantID, hierarchy)
	if err != nil {
		return err
	}
	if err := g.Validate(child, parent, mustExist); err != nil {
		return err
	}

	rels := append(g.Relationships(), models.Relationship{
		Child:  models.Normalize(child),
		Parent: models.Normalize(parent),
	})
	if err := r.store.SetRelationships(ctx, tenantID, hierarchy, rels); err != nil {
		return fmt.Errorf("persist %s relationships: %w", hierarchy, err)
	}
	g.AddEdge(child, parent)
	return nil
}

// RemoveRelationship deletes a direct edge. Removing an edge that is not
// present directly (including one only implied transitively) is an error.
func (r *Registry) RemoveRelationship(ctx context.Context, tenantID, hierarchy, child, parent string) error {
	key := graphKey(tenantID, hierarchy)
	w := r.writer(key)
	w.Lock()
	defer w.Unlock()

	g, err := r.Graph(ctx, tenantID, hierarchy)
	if err != nil {
		return err
	}

	rel := models.Relationship{Child: models.Normalize(child), Parent: models.Normalize(parent)}
	if !g.HasEdge(rel.Child, rel.Parent) {
		return &hier.ValidationError{Code: hier.CodeRelationshipNotFound, Child: rel.Child, Parent: rel.Parent}
	}

	var kept []models.Relationship
	for _, existing := range g.Relationships() {
		if existing != rel {
			kept = append(kept, existing)
		}
	}
	if err := r.store.SetRelationships(ctx, tenantID, hierarchy, kept); err != nil {
		return fmt.Errorf("persist %s relationships: %w", hierarchy, err)
	}
	g.RemoveEdge(rel)
	return nil
}

// InheritedRoles expands assigned role names to the full authorized closure:
// each assigned role plus everything reachable through inheritance. Output is
// sorted and duplicate-free.
func (r *Registry) InheritedRoles(ctx context.Context, tenantID, hierarchy string, assigned []string) ([]string, error) {
	g, err := r.Graph(ctx, tenantID, hierarchy)
	if err != nil {
		return nil, err
	}

	closure := make(map[string]bool)
	for _, name := range assigned {
		name = models.Normalize(name)
		if name == "" {
			continue
		}
		closure[name] = true
		for _, asc := range g.Ascendants(name) {
			closure[asc] = true
		}
	}

	out := make([]string, 0, len(closure))
	for name := range closure {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
