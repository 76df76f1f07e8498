package algorithms

import (
	"sort"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// adjacency builds the undirected neighbor lists of a snapshot, keyed by
// node ID. Relationship direction matters for the graph semantics but not
// for connectivity.
func adjacency(s *graph.Snapshot) map[string][]string {
	adj := make(map[string][]string, len(s.Nodes))
	for _, e := range s.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		if e.Target != e.Source {
			adj[e.Target] = append(adj[e.Target], e.Source)
		}
	}
	return adj
}

// Components returns the connected node groups of a snapshot. Each group
// holds entity names sorted alphabetically; groups are ordered largest
// first, ties broken by their first name. An extraction run that produces
// one component per accident case has found no links between cases; shared
// causes or locations merge components.
func Components(s *graph.Snapshot) [][]string {
	adj := adjacency(s)
	nameByID := make(map[string]string, len(s.Nodes))
	for _, n := range s.Nodes {
		nameByID[n.ID] = n.Name
	}

	visited := make(map[string]bool, len(s.Nodes))
	var components [][]string
	for _, n := range s.Nodes {
		if visited[n.ID] {
			continue
		}
		visited[n.ID] = true

		names := make([]string, 0, 8)
		queue := []string{n.ID}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			names = append(names, nameByID[id])

			for _, next := range adj[id] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}

		sort.Strings(names)
		components = append(components, names)
	}

	sort.Slice(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}

// Neighborhood returns the names of every node within maxDepth hops of the
// named node, the start included, sorted alphabetically. A name that
// appears under several labels seeds the walk from all of its nodes.
// Returns nil when the name is not in the snapshot.
func Neighborhood(s *graph.Snapshot, name string, maxDepth int) []string {
	adj := adjacency(s)
	nameByID := make(map[string]string, len(s.Nodes))
	visited := make(map[string]bool)
	var frontier []string
	for _, n := range s.Nodes {
		nameByID[n.ID] = n.Name
		if n.Name == name {
			frontier = append(frontier, n.ID)
			visited[n.ID] = true
		}
	}
	if len(frontier) == 0 {
		return nil
	}

	reached := make(map[string]bool)
	for _, id := range frontier {
		reached[nameByID[id]] = true
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adj[id] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				reached[nameByID[neighbor]] = true
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	names := make([]string, 0, len(reached))
	for n := range reached {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
