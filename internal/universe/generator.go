package universe

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/dominikbraun/graph"

	"meshwars/internal/config"
)

// Adjacency maps a sector id to the sorted ids it warps to
type Adjacency map[int][]int

var portDescriptions = []string{
	"Trading Hub", "Relay Station", "Commercial Port", "Dock",
	"Market Station", "Exchange Point", "Supply Depot", "Outpost",
}

// maxLinkAttempts bounds the random draws spent per sector on extra warps
const maxLinkAttempts = 10

// Generator builds sector graphs and places ports. It owns its random source,
// so a given seed always yields the same universe. Not safe for concurrent use.
type Generator struct {
	cfg config.UniverseConfig
	rng *rand.Rand
}

func NewGenerator(cfg config.UniverseConfig, seed int64) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
	}
}

// Generate builds a connected universe of cfg.Sectors sectors. Every sector i
// is linked to i+1, then each sector gets up to MaxExtraWarps random extra
// links. Far targets (more than NearDistance ids away) are accepted only
// FarAcceptance of the time.
func (g *Generator) Generate() Adjacency {
	n := g.cfg.Sectors
	links := make(map[int]map[int]bool, n)
	for id := 1; id <= n; id++ {
		links[id] = make(map[int]bool)
	}
	link := func(a, b int) {
		links[a][b] = true
		links[b][a] = true
	}

	for id := 1; id < n; id++ {
		link(id, id+1)
	}

	for id := 1; id <= n; id++ {
		want := len(links[id]) + g.rng.IntN(g.cfg.MaxExtraWarps+1)
		for attempts := 0; len(links[id]) < want && attempts < maxLinkAttempts; attempts++ {
			target := g.rng.IntN(n) + 1
			if target == id || links[id][target] {
				continue
			}
			if abs(target-id) > g.cfg.NearDistance && g.rng.Float64() > g.cfg.FarAcceptance {
				continue
			}
			link(id, target)
		}
	}

	adj := make(Adjacency, n)
	for id, set := range links {
		warps := make([]int, 0, len(set))
		for target := range set {
			warps = append(warps, target)
		}
		slices.Sort(warps)
		adj[id] = warps
	}
	return adj
}

// Validate checks that adj holds sectors 1..n, that every warp is mirrored,
// and that a breadth-first walk from sector 1 reaches all n sectors.
func Validate(adj Adjacency, n int) error {
	if len(adj) != n {
		return fmt.Errorf("universe has %d sectors, expected %d", len(adj), n)
	}
	for id, warps := range adj {
		if id < 1 || id > n {
			return fmt.Errorf("sector %d out of range [1,%d]", id, n)
		}
		for _, target := range warps {
			if target == id {
				return fmt.Errorf("sector %d warps to itself", id)
			}
			if !slices.Contains(adj[target], id) {
				return fmt.Errorf("warp %d->%d has no return warp", id, target)
			}
		}
	}

	g, err := buildGraph(adj, nil)
	if err != nil {
		return err
	}

	visited := 0
	if err := graph.BFS(g, 1, func(int) bool {
		visited++
		return false
	}); err != nil {
		return fmt.Errorf("failed to walk universe: %w", err)
	}
	if visited != n {
		return fmt.Errorf("universe is disconnected: reached %d of %d sectors", visited, n)
	}
	return nil
}

// SelectPortSectors splits the sector range into cfg.Ports equal bands and
// draws one sector from each, returned in ascending order.
func (g *Generator) SelectPortSectors() []int {
	n, ports := g.cfg.Sectors, g.cfg.Ports
	step := n / ports
	sectors := make([]int, 0, ports)
	for i := 0; i < ports; i++ {
		sector := i*step + g.rng.IntN(step) + 1
		if sector <= n {
			sectors = append(sectors, sector)
		}
	}
	return sectors
}

// PortName returns a name like "Trading Hub-17"
func (g *Generator) PortName(sector int) string {
	return fmt.Sprintf("%s-%d", portDescriptions[g.rng.IntN(len(portDescriptions))], sector)
}

// StartingSector picks where a new commander's ship appears
func (g *Generator) StartingSector(max int) int {
	return g.rng.IntN(max) + 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
