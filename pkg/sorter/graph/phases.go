package graph

import (
	"sort"
	"strings"

	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
)

// addSpecificEdges is Phase 1: hard constraints, added without the cycle
// guard (force=true) since a cycle among them is a genuine modelling error
// the caller must see, not something to silently drop.
func (g *Graph) addSpecificEdges() error {
	for _, a := range g.order {
		va := g.vertex(a)
		for _, b := range g.order {
			if a == b {
				continue
			}
			vb := g.vertex(b)
			if va.IsMaster && !vb.IsMaster {
				if err := g.addEdge(a, b, true); err != nil {
					return err
				}
			}
		}
	}
	for _, name := range g.order {
		v := g.vertex(name)
		for _, m := range v.Masters {
			if !g.HasVertex(m) {
				continue
			}
			if err := g.addEdge(m, name, true); err != nil {
				return err
			}
		}
		for _, f := range v.AfterFiles {
			if !g.HasVertex(f) {
				continue
			}
			if err := g.addEdge(f, name, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// propagatePriorities is Phase 2. Vertices with non-zero priority are
// visited in decreasing (global, local) order; a depth-first walk over
// descendants raises each descendant's priority to at least the visiting
// vertex's, continuing through any descendant whose priority was actually
// raised and stopping at the first one that already dominates.
func (g *Graph) propagatePriorities() {
	var seeds []string
	for _, name := range g.order {
		v := g.vertex(name)
		if v.LocalPriority != 0 || v.GlobalPriority != 0 {
			seeds = append(seeds, name)
		}
	}
	sort.Slice(seeds, func(i, j int) bool {
		vi, vj := g.vertex(seeds[i]), g.vertex(seeds[j])
		if vi.GlobalPriority != vj.GlobalPriority {
			return vi.GlobalPriority > vj.GlobalPriority
		}
		return vi.LocalPriority > vj.LocalPriority
	})

	for _, seed := range seeds {
		sv := g.vertex(seed)
		visited := make(map[string]struct{})
		g.propagateFrom(seed, sv.LocalPriority, sv.GlobalPriority, visited)
	}
}

func (g *Graph) propagateFrom(name string, local, global int16, visited map[string]struct{}) {
	if _, seen := visited[name]; seen {
		return
	}
	visited[name] = struct{}{}
	for child := range g.edges[name] {
		d := g.vertex(child)
		if d.LocalPriority < local {
			d.LocalPriority = local
			g.propagateFrom(child, local, global, visited)
		} else if d.GlobalPriority < global {
			d.GlobalPriority = global
			g.propagateFrom(child, local, global, visited)
		}
	}
}

// isDefaultPriority reports whether v carries no priority signal at all:
// global == 0 AND override_count == 0 AND !loads_archive. Such a vertex has
// no opinion about where it sits relative to its peers and is only ever
// pulled into a Phase-3 edge as the "loses the tie-break against an
// opinionated peer" side.
func isDefaultPriority(v *Vertex) bool {
	return v.GlobalPriority == 0 && v.OverrideCount == 0 && !v.LoadsArchive
}

// addPriorityEdges is Phase 3: any plugin that has expressed a priority
// opinion (global/local priority, override records, or an archive) is
// ordered ahead of an otherwise-unopinionated peer; between two opinionated
// plugins, the one with the lower (global, local) pair loads first.
func (g *Graph) addPriorityEdges() error {
	for _, a := range g.order {
		va := g.vertex(a)
		for _, b := range g.order {
			if a == b {
				continue
			}
			vb := g.vertex(b)

			aDefault, bDefault := isDefaultPriority(va), isDefaultPriority(vb)
			if aDefault && bDefault {
				continue
			}
			if va.GlobalPriority == vb.GlobalPriority && va.LocalPriority == vb.LocalPriority {
				continue
			}
			if va.GlobalPriority == 0 && vb.GlobalPriority == 0 && !overlaps(va, vb) {
				continue
			}

			var lower, higher string
			switch {
			case aDefault != bDefault:
				if aDefault {
					lower, higher = b, a
				} else {
					lower, higher = a, b
				}
			case lowerPriority(va, vb):
				lower, higher = a, b
			default:
				lower, higher = b, a
			}
			if err := g.addEdge(lower, higher, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// lowerPriority reports whether a sorts ahead of b by ascending
// (global, local) order, used only to order two equally-opinionated
// vertices relative to each other.
func lowerPriority(a, b *Vertex) bool {
	if a.GlobalPriority != b.GlobalPriority {
		return a.GlobalPriority < b.GlobalPriority
	}
	return a.LocalPriority < b.LocalPriority
}

func overlaps(a, b *Vertex) bool {
	if a.Overlaps == nil {
		return false
	}
	return a.Overlaps(b.Name)
}

// addOverlapEdges is Phase 4: the plugin overriding more records loads
// first.
func (g *Graph) addOverlapEdges() error {
	for _, a := range g.order {
		va := g.vertex(a)
		if va.OverrideCount == 0 {
			continue
		}
		for _, b := range g.order {
			if a == b {
				continue
			}
			vb := g.vertex(b)
			if vb.OverrideCount == va.OverrideCount {
				continue
			}
			if !overlaps(va, vb) {
				continue
			}
			if g.hasEdge(a, b) || g.hasEdge(b, a) {
				continue
			}
			higher, lower := a, b
			if vb.OverrideCount > va.OverrideCount {
				higher, lower = b, a
			}
			if err := g.addEdge(higher, lower, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// addGroupEdges is the supplemented "Phase 2.5 -- group edges": groups form
// a DAG via their after-sets, topologically resolved once, then plugins in
// an earlier-ordered group get an edge toward plugins in a later-ordered
// group, provided no more specific edge already separates them. Inserted
// between Phase 2 (priority propagation) and Phase 3 (priority edges), and
// subject to the same cycle guard as every other soft phase.
func (g *Graph) addGroupEdges(groups map[string]metadata.Group) error {
	order, err := topoSortGroups(groups)
	if err != nil {
		// A cyclic group DAG is a metadata authoring error, not a sort
		// failure; skip group edges entirely rather than fail the sort.
		g.logger.Warn("group graph contains a cycle; skipping group edges", "error", err.Error())
		return nil
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}

	for _, a := range g.order {
		va := g.vertex(a)
		ra, ok := rank[va.Group]
		if !ok {
			continue
		}
		for _, b := range g.order {
			if a == b {
				continue
			}
			vb := g.vertex(b)
			rb, ok := rank[vb.Group]
			if !ok || ra == rb {
				continue
			}
			if g.hasEdge(a, b) || g.hasEdge(b, a) {
				continue
			}
			parent, child := a, b
			if ra > rb {
				parent, child = b, a
			}
			if err := g.addEdge(parent, child, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoSortGroups returns group names in an order consistent with each
// group's after-set (a group named in After must precede the group that
// names it).
func topoSortGroups(groups map[string]metadata.Group) ([]string, error) {
	visited := make(map[string]int) // 0=unseen, 1=visiting, 2=done
	var order []string
	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			return ErrCycle
		}
		visited[name] = 1
		g, ok := groups[name]
		if ok {
			afters := make([]string, 0, len(g.After))
			for a := range g.After {
				afters = append(afters, a)
			}
			sort.Strings(afters)
			for _, a := range afters {
				if _, known := groups[a]; !known {
					continue
				}
				if err := visit(a); err != nil {
					return err
				}
			}
		}
		visited[name] = 2
		order = append(order, name)
		return nil
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// addTieBreakEdges is Phase 5.
func (g *Graph) addTieBreakEdges(priorLoadOrder []string) error {
	index := make(map[string]int, len(priorLoadOrder))
	for i, name := range priorLoadOrder {
		index[name] = i
	}

	for i := 0; i < len(g.order); i++ {
		a := g.order[i]
		for j := i + 1; j < len(g.order); j++ {
			b := g.order[j]
			if g.hasEdge(a, b) || g.hasEdge(b, a) {
				continue
			}
			winner, loser := compareTieBreak(a, b, index)
			if err := g.addEdge(winner, loser, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// compareTieBreak resolves the final tie-break with an extension-aware
// basename strip: the winner is returned first, the loser second.
func compareTieBreak(a, b string, priorIndex map[string]int) (winner, loser string) {
	ia, inA := priorIndex[a]
	ib, inB := priorIndex[b]

	switch {
	case inA && !inB:
		return a, b
	case inB && !inA:
		return b, a
	case inA && inB:
		if ia <= ib {
			return a, b
		}
		return b, a
	}

	baseA := metadata.Fold(stripExtension(a))
	baseB := metadata.Fold(stripExtension(b))
	if baseA != baseB {
		if baseA < baseB {
			return a, b
		}
		return b, a
	}
	if a <= b {
		return a, b
	}
	return b, a
}

func stripExtension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
