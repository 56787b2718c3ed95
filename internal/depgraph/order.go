package depgraph

import (
	"sort"

	"github.com/saby/builder-sub003/internal/output"
)

// OrderedQueue is a load order partitioned by resource kind and locale.
// Every list preserves the global topological order.
type OrderedQueue struct {
	JS           []string            `json:"js"`
	CSS          []string            `json:"css"`
	Dict         map[string][]string `json:"dict"`
	CSSForLocale map[string][]string `json:"cssForLocale"`
}

// NewOrderedQueue returns an empty queue with non-nil collections.
func NewOrderedQueue() OrderedQueue {
	return OrderedQueue{
		JS:           []string{},
		CSS:          []string{},
		Dict:         map[string][]string{},
		CSSForLocale: map[string][]string{},
	}
}

// Locales returns every locale present in the queue, sorted.
func (q OrderedQueue) Locales() []string {
	seen := make(map[string]bool)
	for l := range q.Dict {
		seen[l] = true
	}
	for l := range q.CSSForLocale {
		seen[l] = true
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

// GetLoadOrder returns the load order of everything reachable from the
// start nodes. Dependencies come before their dependents and each node
// appears once.
//
// Start nodes and the dependencies of each node are visited in lexicographic
// order, so the result does not depend on the order callers list independent
// roots in. An edge back to a node on the current path is skipped, which
// breaks cycles deterministically. Unknown ids are logged and skipped.
func (g *Graph) GetLoadOrder(startNodes []string) OrderedQueue {
	roots := make([]string, 0, len(startNodes))
	for _, id := range startNodes {
		norm, _ := Normalize(id)
		roots = append(roots, norm)
	}
	sort.Strings(roots)

	state := make(map[string]visitState, len(g.nodes))
	var flat []string

	var visit func(id string)
	visit = func(id string) {
		if state[id] != unvisited {
			return
		}
		node := g.nodes[id]
		state[id] = visiting

		deps := make([]string, 0, len(node.Deps))
		for _, d := range node.Deps {
			dep, optional := Normalize(d)
			if _, ok := g.nodes[dep]; !ok {
				if optional {
					output.Debug("optional dependency not found", "module", id, "dependency", dep)
				} else {
					output.Warn("dependency not found", "module", id, "dependency", dep)
				}
				continue
			}
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		for _, dep := range deps {
			visit(dep)
		}
		state[id] = visited
		flat = append(flat, id)
	}

	for _, id := range roots {
		if _, ok := g.nodes[id]; !ok {
			if state[id] == unvisited {
				output.Warn("start node not found", "module", id)
				state[id] = visited
			}
			continue
		}
		visit(id)
	}

	return g.partition(flat)
}

func (g *Graph) partition(flat []string) OrderedQueue {
	q := NewOrderedQueue()
	for _, id := range flat {
		node := g.nodes[id]
		locale := LocaleOf(id)
		switch node.Kind {
		case KindStylesheet:
			if locale == "" {
				q.CSS = append(q.CSS, id)
			} else {
				q.CSSForLocale[locale] = append(q.CSSForLocale[locale], id)
			}
		case KindDictionary:
			q.Dict[locale] = append(q.Dict[locale], id)
		default:
			q.JS = append(q.JS, id)
		}
	}
	return q
}
