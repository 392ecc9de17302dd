package graph

// Stats summarizes a materialized graph.
type Stats struct {
	NodeCount    int     `json:"nodeCount"`
	EdgeCount    int     `json:"edgeCount"`
	ClusterCount int     `json:"clusterCount"`
	Density      float64 `json:"density"`
}

// ComputeStats counts nodes, edges and connected components. Density is
// measured against the n*(n-1) possible directed edges.
func ComputeStats(g Graph) Stats {
	stats := Stats{
		NodeCount:    len(g.Nodes),
		EdgeCount:    len(g.Edges),
		ClusterCount: len(Clusters(g)),
	}
	if n := len(g.Nodes); n > 1 {
		stats.Density = float64(len(g.Edges)) / float64(n*(n-1))
	}
	return stats
}

// Clusters groups node ids into connected components, ignoring edge
// direction. Components are ordered by their first node in g.Nodes and
// members by discovery order.
func Clusters(g Graph) [][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	visited := make(map[string]bool, len(g.Nodes))
	var clusters [][]string
	for _, n := range g.Nodes {
		if visited[n.ID] {
			continue
		}
		clusters = append(clusters, dfs(n.ID, adj, visited))
	}
	return clusters
}

func dfs(start string, adj map[string][]string, visited map[string]bool) []string {
	var cluster []string
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		cluster = append(cluster, id)
		for i := len(adj[id]) - 1; i >= 0; i-- {
			if next := adj[id][i]; !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return cluster
}
