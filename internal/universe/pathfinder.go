package universe

import (
	"container/heap"
	"errors"
	"fmt"
	"slices"

	"github.com/dominikbraun/graph"
)

var (
	// ErrUnreachable is returned when no path joins two sectors
	ErrUnreachable = errors.New("sector unreachable")
	// ErrNoPorts is returned by NearestPort when no port can be reached
	ErrNoPorts = errors.New("no reachable port")
)

// PathFinder answers shortest-path queries over an immutable universe.
// Every warp costs one turn. Safe for concurrent use once built.
type PathFinder struct {
	g   graph.Graph[int, int]
	adj map[int][]int
}

// NewPathFinder indexes adj for path queries. ports marks sectors that host a
// port; it only affects DOT output.
func NewPathFinder(adj Adjacency, ports []int) (*PathFinder, error) {
	g, err := buildGraph(adj, ports)
	if err != nil {
		return nil, err
	}

	am, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read adjacency: %w", err)
	}

	pf := &PathFinder{
		g:   g,
		adj: make(map[int][]int, len(am)),
	}
	for id, edges := range am {
		warps := make([]int, 0, len(edges))
		for target := range edges {
			warps = append(warps, target)
		}
		slices.Sort(warps)
		pf.adj[id] = warps
	}
	return pf, nil
}

// buildGraph loads adj into an undirected graph. Vertices are added in id
// order; mirrored warps collapse into one edge.
func buildGraph(adj Adjacency, ports []int) (graph.Graph[int, int], error) {
	g := graph.New(graph.IntHash)

	ids := make([]int, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		var opts []func(*graph.VertexProperties)
		if slices.Contains(ports, id) {
			opts = append(opts, graph.VertexAttribute("shape", "box"), graph.VertexAttribute("style", "filled"))
		}
		if err := g.AddVertex(id, opts...); err != nil {
			return nil, fmt.Errorf("failed to add sector %d: %w", id, err)
		}
	}
	for _, id := range ids {
		for _, target := range adj[id] {
			err := g.AddEdge(id, target)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to add warp %d->%d: %w", id, target, err)
			}
		}
	}
	return g, nil
}

// Sectors returns the number of sectors in the universe
func (pf *PathFinder) Sectors() int {
	return len(pf.adj)
}

// Neighbors returns the sorted warps out of sector
func (pf *PathFinder) Neighbors(sector int) []int {
	return slices.Clone(pf.adj[sector])
}

// Path returns the sectors from a to b inclusive along a shortest route.
// Among equally short routes the one found by expanding lower sector ids
// first wins, so results are stable for a given universe.
func (pf *PathFinder) Path(a, b int) ([]int, error) {
	if _, ok := pf.adj[a]; !ok {
		return nil, fmt.Errorf("%w: unknown sector %d", ErrUnreachable, a)
	}
	if _, ok := pf.adj[b]; !ok {
		return nil, fmt.Errorf("%w: unknown sector %d", ErrUnreachable, b)
	}
	if a == b {
		return []int{a}, nil
	}

	_, prev := pf.dijkstra(a, b)
	if _, ok := prev[b]; !ok {
		return nil, fmt.Errorf("%w: no route from %d to %d", ErrUnreachable, a, b)
	}

	path := []int{b}
	for at := b; at != a; {
		at = prev[at]
		path = append(path, at)
	}
	slices.Reverse(path)
	return path, nil
}

// Distance is the number of warps on the shortest route from a to b
func (pf *PathFinder) Distance(a, b int) (int, error) {
	path, err := pf.Path(a, b)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}

// NearestPort returns the closest of portSectors to from and its distance.
// Ties go to the lowest sector id.
func (pf *PathFinder) NearestPort(from int, portSectors []int) (sector, distance int, err error) {
	if _, ok := pf.adj[from]; !ok {
		return 0, 0, fmt.Errorf("%w: unknown sector %d", ErrUnreachable, from)
	}

	dist, _ := pf.dijkstra(from, 0)
	best, bestDist := 0, -1
	for _, p := range portSectors {
		d, ok := dist[p]
		if !ok {
			continue
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && p < best) {
			best, bestDist = p, d
		}
	}
	if bestDist < 0 {
		return 0, 0, ErrNoPorts
	}
	return best, bestDist, nil
}

// dijkstra runs a single-source search from start, stopping early once target
// is settled. Pass target 0 to settle every reachable sector.
func (pf *PathFinder) dijkstra(start, target int) (dist, prev map[int]int) {
	dist = map[int]int{start: 0}
	prev = make(map[int]int)
	settled := make(map[int]bool)

	pq := &sectorQueue{{sector: start}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queued)
		if settled[cur.sector] {
			continue
		}
		settled[cur.sector] = true
		if cur.sector == target {
			break
		}

		for _, next := range pf.adj[cur.sector] {
			if settled[next] {
				continue
			}
			nd := cur.dist + 1
			if d, seen := dist[next]; !seen || nd < d {
				dist[next] = nd
				prev[next] = cur.sector
				heap.Push(pq, queued{sector: next, dist: nd})
			}
		}
	}
	return dist, prev
}

type queued struct {
	sector int
	dist   int
}

// sectorQueue is a min-heap ordered by distance, then sector id
type sectorQueue []queued

func (q sectorQueue) Len() int { return len(q) }

func (q sectorQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].sector < q[j].sector
}

func (q sectorQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *sectorQueue) Push(x any) { *q = append(*q, x.(queued)) }

func (q *sectorQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
