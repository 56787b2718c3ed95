// Package depgraph keeps the load-before relation between logical resources
// (script modules, css! modules, per-locale dictionaries) and turns subsets
// of it into deterministic load orders.
package depgraph

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// Node is a logical resource and the resources it requires before loading.
type Node struct {
	ID   string
	Kind Kind
	Deps []string

	// Path is the physical file relative to the application root, when the
	// dependency metadata declares one.
	Path string

	// AMD marks nodes already wrapped in a define() call.
	AMD bool
}

// Graph is a directed graph over resource ids. Edges point from a node to
// the nodes it depends on. Cycles are allowed.
type Graph struct {
	nodes map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode inserts n or merges it into an existing node with the same id.
// Merging unions the dependency lists and keeps the first known path.
func (g *Graph) AddNode(n Node) {
	id, _ := Normalize(n.ID)
	deps := append([]string(nil), n.Deps...)

	existing, ok := g.nodes[id]
	if !ok {
		if n.Kind == "" {
			n.Kind = KindOf(id)
		}
		n.ID = id
		n.Deps = dedupe(deps)
		g.nodes[id] = &n
		return
	}

	existing.Deps = dedupe(append(existing.Deps, deps...))
	if existing.Path == "" {
		existing.Path = n.Path
	}
	existing.AMD = existing.AMD || n.AMD
	if n.Kind != "" {
		existing.Kind = n.Kind
	}
}

// AddEdge records that from requires to.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(Node{ID: from, Deps: []string{to}})
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	id, _ = Normalize(id)
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether the id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Owners returns the sorted set of modules the given nodes belong to. A node
// belongs to the first segment of its bare name and, when it has a physical
// file, to the first segment of that path.
func (g *Graph) Owners(ids []string) []string {
	seen := make(map[string]bool)
	add := func(p string) {
		if owner, _, _ := strings.Cut(p, "/"); owner != "" {
			seen[owner] = true
		}
	}
	for _, id := range ids {
		norm, _ := Normalize(id)
		_, name := SplitPlugins(norm)
		add(name)
		if n, ok := g.nodes[norm]; ok && n.Path != "" {
			add(n.Path)
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// IDs returns all node ids, sorted.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// moduleDependencies mirrors module-dependencies.json.
type moduleDependencies struct {
	Links map[string][]string `json:"links"`
	Nodes map[string]struct {
		Path string `json:"path"`
		AMD  bool   `json:"amd"`
	} `json:"nodes"`
}

// DependenciesFile is the per-module dependency metadata file name.
const DependenciesFile = "module-dependencies.json"

// LoadModuleDependencies merges a module-dependencies.json document read
// from fsys into the graph.
func (g *Graph) LoadModuleDependencies(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	var doc moduleDependencies
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}

	ids := make([]string, 0, len(doc.Links)+len(doc.Nodes))
	for id := range doc.Links {
		ids = append(ids, id)
	}
	for id := range doc.Nodes {
		if _, ok := doc.Links[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		meta := doc.Nodes[id]
		g.AddNode(Node{ID: id, Deps: doc.Links[id], Path: meta.Path, AMD: meta.AMD})
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
