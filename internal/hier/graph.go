// Package hier implements the in-memory hierarchy graph engine. One Graph
// holds the directed parent/child relation for a single hierarchy type and
// tenant: an edge points from child to parent ("child inherits from parent").
// Graphs are shared across request goroutines; mutations take the writer lock
// so readers observe either the pre- or post-mutation state, never a torn
// edge.
package hier

import (
	"fmt"
	"sort"
	"sync"

	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/models"
)

// Relationship validation error codes.
const (
	CodeInvalidRelationship  = "INVALID_RELATIONSHIP"
	CodeRelationshipNotFound = "RELATIONSHIP_NOT_FOUND"
	CodeRelationshipExists   = "RELATIONSHIP_ALREADY_EXISTS"
	CodeRelationshipCyclic   = "RELATIONSHIP_CYCLIC"
)

// ValidationError reports a structural violation detected before any mutation
// is applied.
type ValidationError struct {
	Code   string
	Child  string
	Parent string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("relationship validation error [%s]: child=%s parent=%s", e.Code, e.Child, e.Parent)
}

// Graph is an adjacency structure over upper-cased node names. The zero value
// is not usable; construct with NewGraph or BuildGraph.
type Graph struct {
	mu       sync.RWMutex
	parents  map[string]map[string]bool // child -> direct parents
	children map[string]map[string]bool // parent -> direct children
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		parents:  make(map[string]map[string]bool),
		children: make(map[string]map[string]bool),
	}
}

// BuildGraph constructs a graph from the full relationship list of one tenant
// and hierarchy type. Duplicate edges are dropped with a warning rather than
// failing, so a dirty directory attribute cannot brick the cache rebuild.
func BuildGraph(relationships []models.Relationship, log logging.Logger) *Graph {
	g := NewGraph()
	for _, rel := range relationships {
		child := models.Normalize(rel.Child)
		parent := models.Normalize(rel.Parent)
		if child == "" || parent == "" || child == parent {
			if log != nil {
				log.Warn("skipping malformed relationship", "child", rel.Child, "parent", rel.Parent)
			}
			continue
		}
		if g.hasEdgeLocked(child, parent) {
			if log != nil {
				log.Warn("skipping duplicate relationship", "child", child, "parent", parent)
			}
			continue
		}
		g.addEdgeLocked(child, parent)
	}
	return g
}

// Validate checks a proposed edge (child, parent) against the graph.
//
// With mustExist the edge is required to be present. Without it, the checks
// run in a deliberate order: "already related" (parent reachable from child)
// is reported before "would create a cycle" (child reachable from parent).
func (g *Graph) Validate(child, parent string, mustExist bool) error {
	child = models.Normalize(child)
	parent = models.Normalize(parent)

	if child == "" || parent == "" || child == parent {
		return &ValidationError{Code: CodeInvalidRelationship, Child: child, Parent: parent}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if mustExist {
		if !g.hasEdgeLocked(child, parent) {
			return &ValidationError{Code: CodeRelationshipNotFound, Child: child, Parent: parent}
		}
		return nil
	}
	if g.reachableLocked(child, parent) {
		// parent already an ascendant of child
		return &ValidationError{Code: CodeRelationshipExists, Child: child, Parent: parent}
	}
	if g.reachableLocked(parent, child) {
		// child already an ascendant of parent: the new edge would close a cycle
		return &ValidationError{Code: CodeRelationshipCyclic, Child: child, Parent: parent}
	}
	return nil
}

// AddEdge inserts the edge (child, parent), creating both vertices if absent.
// Callers are expected to have validated the edge; AddEdge itself only
// guarantees atomicity, not structural soundness.
func (g *Graph) AddEdge(child, parent string) {
	child = models.Normalize(child)
	parent = models.Normalize(parent)
	if child == "" || parent == "" || child == parent {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.addEdgeLocked(child, parent)
}

// RemoveEdge deletes the edge named by the relationship. Vertices are kept
// even when they end up isolated.
func (g *Graph) RemoveEdge(rel models.Relationship) {
	child := models.Normalize(rel.Child)
	parent := models.Normalize(rel.Parent)

	g.mu.Lock()
	defer g.mu.Unlock()
	if set, ok := g.parents[child]; ok {
		delete(set, parent)
	}
	if set, ok := g.children[parent]; ok {
		delete(set, child)
	}
	// Drop vertices that no longer participate in any relationship so
	// Contains stays truthful after the last edge goes.
	for _, node := range []string{child, parent} {
		if len(g.parents[node]) == 0 && len(g.children[node]) == 0 {
			delete(g.parents, node)
			delete(g.children, node)
		}
	}
}

// HasEdge reports whether the direct edge (child, parent) exists.
func (g *Graph) HasEdge(child, parent string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasEdgeLocked(models.Normalize(child), models.Normalize(parent))
}

// Contains reports whether the node participates in any relationship.
func (g *Graph) Contains(name string) bool {
	name = models.Normalize(name)
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, inP := g.parents[name]
	_, inC := g.children[name]
	return inP || inC
}

// Ascendants returns the full transitive closure of the node's parents, in
// sorted order. A node absent from the graph yields an empty, non-nil slice.
func (g *Graph) Ascendants(name string) []string {
	name = models.Normalize(name)
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[string]bool)
	g.walkUpLocked(name, result)
	return sortedNames(result)
}

// AscendantsUntil returns the ascendants of child, stopping the upward walk
// at stopAtParent: the walk does not expand past it, so unrelated upper
// hierarchy is left out. With inclusive the stop node itself is part of the
// result.
func (g *Graph) AscendantsUntil(child, stopAtParent string, inclusive bool) []string {
	child = models.Normalize(child)
	stop := models.Normalize(stopAtParent)

	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[string]bool)
	g.walkUpUntilLocked(child, stop, inclusive, result)
	return sortedNames(result)
}

// Descendants returns the full transitive closure of the node's children, in
// sorted order.
func (g *Graph) Descendants(name string) []string {
	name = models.Normalize(name)
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[string]bool)
	g.walkDownLocked(name, result)
	return sortedNames(result)
}

// Parents returns the direct (one-hop) parents of the node.
func (g *Graph) Parents(name string) []string {
	name = models.Normalize(name)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedNames(g.parents[name])
}

// Children returns the direct (one-hop) children of the node.
func (g *Graph) Children(name string) []string {
	name = models.Normalize(name)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedNames(g.children[name])
}

// NumChildren returns the node's in-degree: the number of direct children.
// Deletion of a node is forbidden while this is non-zero.
func (g *Graph) NumChildren(name string) int {
	name = models.Normalize(name)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.children[name])
}

// Relationships returns a snapshot of every edge in the graph.
func (g *Graph) Relationships() []models.Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var rels []models.Relationship
	for child, parents := range g.parents {
		for parent := range parents {
			rels = append(rels, models.Relationship{Child: child, Parent: parent})
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Child != rels[j].Child {
			return rels[i].Child < rels[j].Child
		}
		return rels[i].Parent < rels[j].Parent
	})
	return rels
}

func (g *Graph) addEdgeLocked(child, parent string) {
	if g.parents[child] == nil {
		g.parents[child] = make(map[string]bool)
	}
	if g.children[parent] == nil {
		g.children[parent] = make(map[string]bool)
	}
	// Touch the reverse maps so both vertices exist even before they gain
	// relations in the other direction.
	if g.parents[parent] == nil {
		g.parents[parent] = make(map[string]bool)
	}
	if g.children[child] == nil {
		g.children[child] = make(map[string]bool)
	}
	g.parents[child][parent] = true
	g.children[parent][child] = true
}

func (g *Graph) hasEdgeLocked(child, parent string) bool {
	return g.parents[child][parent]
}

// reachableLocked reports whether target is an ascendant of from (reachable
// by following child->parent edges).
func (g *Graph) reachableLocked(from, target string) bool {
	if g.hasEdgeLocked(from, target) {
		return true
	}
	seen := make(map[string]bool)
	return g.searchUpLocked(from, target, seen)
}

func (g *Graph) searchUpLocked(node, target string, seen map[string]bool) bool {
	for parent := range g.parents[node] {
		if seen[parent] {
			continue
		}
		seen[parent] = true
		if parent == target || g.searchUpLocked(parent, target, seen) {
			return true
		}
	}
	return false
}

func (g *Graph) walkUpLocked(node string, result map[string]bool) {
	for parent := range g.parents[node] {
		if result[parent] {
			continue
		}
		result[parent] = true
		g.walkUpLocked(parent, result)
	}
}

func (g *Graph) walkUpUntilLocked(node, stop string, inclusive bool, result map[string]bool) {
	for parent := range g.parents[node] {
		if result[parent] {
			continue
		}
		if parent == stop {
			if inclusive {
				result[parent] = true
			}
			continue
		}
		result[parent] = true
		g.walkUpUntilLocked(parent, stop, inclusive, result)
	}
}

func (g *Graph) walkDownLocked(node string, result map[string]bool) {
	for child := range g.children[node] {
		if result[child] {
			continue
		}
		result[child] = true
		g.walkDownLocked(child, result)
	}
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
