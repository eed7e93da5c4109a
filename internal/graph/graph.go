// Package graph implements the two query operations over the lockfile's
// implicit dependency graph (§4.8): reachability, used by prune to find
// orphaned module-tree entries, and path enumeration, used by why to
// explain why a package is installed.
//
// Reachability walks to a fixpoint using one goroutine per edge under a
// shared errgroup.Group, the same fan-out shape as turborepo's
// lockfile.transitiveClosure, and tracks visited names with
// deckarep/golang-set exactly as that function does.
package graph

import (
	mapset "github.com/deckarep/golang-set"
	"github.com/pyr-sh/dag"
	"golang.org/x/sync/errgroup"

	"github.com/crabbypm/crabby/internal/lockfile"
)

// MaxPathLength caps why's path exploration depth (§4.8 "path length is
// capped (10)").
const MaxPathLength = 10

// Reachable walks lf's dependency edges from roots to a fixpoint and
// returns the set of reachable names, including the roots themselves
// (§4.8 "Reachability").
func Reachable(lf *lockfile.Lockfile, roots []string) (mapset.Set, error) {
	reached := mapset.NewSet()
	eg := &errgroup.Group{}
	reachHelper(eg, lf, roots, reached)
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return reached, nil
}

func reachHelper(eg *errgroup.Group, lf *lockfile.Lockfile, names []string, reached mapset.Set) {
	for _, name := range names {
		name := name
		if reached.Contains(name) {
			continue
		}
		reached.Add(name)
		eg.Go(func() error {
			entry, ok := lf.Get(name)
			if !ok {
				return nil
			}
			deps := make([]string, 0, len(entry.Deps))
			for dep := range entry.Deps {
				if !reached.Contains(dep) {
					deps = append(deps, dep)
				}
			}
			if len(deps) > 0 {
				reachHelper(eg, lf, deps, reached)
			}
			return nil
		})
	}
}

// Path is one route from a root dependency to a target, labelled with the
// root's kind (runtime or dev).
type Path struct {
	Root    string
	Dev     bool
	Chain   []string
}

// Why enumerates every path from a direct dependency (runtime or dev, in
// roots) to target in lf's graph. Cycles are broken by refusing to
// re-enter a name already on the current path; depth is capped at
// MaxPathLength (§4.8 "Paths").
func Why(lf *lockfile.Lockfile, roots map[string]bool, target string) []Path {
	var results []Path
	for root, dev := range roots {
		onPath := map[string]bool{root: true}
		walk(lf, root, target, []string{root}, onPath, &results, root, dev)
	}
	return results
}

func walk(lf *lockfile.Lockfile, current, target string, chain []string, onPath map[string]bool, results *[]Path, root string, dev bool) {
	if current == target {
		*results = append(*results, Path{Root: root, Dev: dev, Chain: append([]string{}, chain...)})
		return
	}
	if len(chain) >= MaxPathLength {
		return
	}
	entry, ok := lf.Get(current)
	if !ok {
		return
	}
	for dep := range entry.Deps {
		if onPath[dep] {
			continue // cycle: refuse to re-enter a name already on this path
		}
		onPath[dep] = true
		walk(lf, dep, target, append(chain, dep), onPath, results, root, dev)
		delete(onPath, dep)
	}
}

// Cycles builds a dag.AcyclicGraph over lf's entries (the package's
// "intern-like identifier" edges described in §9) and reports every cycle
// it contains, for diagnostics. This deliberately does not call the dag
// package's own Validate — a lockfile graph is allowed to contain real
// dependency cycles (§9 "Cyclic graphs"); Cycles is informational only,
// grounded on turborepo's util.ValidateGraph which performs the same
// Cycles()-based check (without Validate's single-root requirement) before
// deciding whether to report an error to the user.
func Cycles(lf *lockfile.Lockfile) [][]string {
	var g dag.AcyclicGraph
	for name := range lf.Packages {
		g.Add(name)
	}
	for name, entry := range lf.Packages {
		for dep := range entry.Deps {
			if _, ok := lf.Packages[dep]; ok {
				g.Connect(dag.BasicEdge(name, dep))
			}
		}
	}

	cycles := g.Cycles()
	out := make([][]string, 0, len(cycles))
	for _, cycle := range cycles {
		names := make([]string, 0, len(cycle))
		for _, v := range cycle {
			if name, ok := v.(string); ok {
				names = append(names, name)
			}
		}
		out = append(out, names)
	}
	return out
}

// Orphans returns every name in installedNames that is not in reached and
// does not start with "." (the reserved .bin directory, §4.8 "Reachability
// correctness").
func Orphans(installedNames []string, reached mapset.Set) []string {
	var orphans []string
	for _, name := range installedNames {
		if len(name) > 0 && name[0] == '.' {
			continue
		}
		if !reached.Contains(name) {
			orphans = append(orphans, name)
		}
	}
	return orphans
}
