// Package install implements the install orchestrator (§4.7), the heart of
// crabby: a recursive, bounded-parallel install of a dependency graph with
// visited-set memoization, per-destination mutual exclusion, lockfile
// integration, and lifecycle-hook invocation.
//
// The fan-out shape — one goroutine per (name, constraint) pair, errors
// aggregated rather than short-circuited — is grounded on turborepo's
// lockfile.transitiveClosure (errgroup.Group + deckarep/golang-set for the
// visited set) and on its context.go / cache.go's use of
// hashicorp/go-multierror to collect per-package failures without letting
// one failing sibling cancel the rest (§5 "no cooperative cancellation
// across tasks").
package install

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/crabbypm/crabby/internal/archivecache"
	"github.com/crabbypm/crabby/internal/crabbypath"
	"github.com/crabbypm/crabby/internal/hooks"
	"github.com/crabbypm/crabby/internal/lockfile"
	"github.com/crabbypm/crabby/internal/registry"
)

// DefaultConcurrency is the default bound on tasks simultaneously inside
// the fetch-archive-and-extract critical section (§5 "Concurrency limit").
const DefaultConcurrency = 10

// Orchestrator holds configuration shared across install runs: the
// collaborators it talks to and the knobs the caller may tune. It is safe
// to reuse across multiple InstallSet calls; per-invocation state (visited
// set, accumulating lockfile, per-name lock table) lives in the unexported
// run type instead.
type Orchestrator struct {
	Registry *registry.Client
	Cache    *archivecache.Store
	Hooks    *hooks.Runner
	Logger   hclog.Logger

	// ModuleRoot is the absolute path to the project root; node_modules
	// is created directly beneath it (§3 "Module tree").
	ModuleRoot string

	// Concurrency bounds fetch-archive-and-extract tasks; zero means
	// DefaultConcurrency (§5).
	Concurrency int

	// StrictIntegrity upgrades a content-hash mismatch from a warning to
	// a hard failure (§4.5, an explicitly orthogonal, optional concern).
	StrictIntegrity bool

	// NodeVersion is the runtime version string an extracted package's
	// engines.node constraint is compared against for the informational
	// engines-mismatch log line (SPEC_FULL.md supplemented feature 5).
	// Empty disables the comparison.
	NodeVersion string
}

// run holds the state shared by every task spawned from one InstallSet
// invocation (§4.7 "Shared state for one invocation").
type run struct {
	o *Orchestrator

	// prior is a read-only snapshot of the lockfile at invocation start.
	// It is never mutated after newRun constructs it, so concurrent reads
	// need no lock; the "under its lock" language in §4.7 step 2 is
	// satisfied by construction rather than by a runtime mutex.
	prior *lockfile.Lockfile

	visitedMu sync.Mutex
	visited   map[string]bool

	nameLocksMu sync.Mutex
	nameLocks   map[string]*sync.Mutex

	updatedMu sync.Mutex
	updated   *lockfile.Lockfile

	permits chan struct{}
}

func (o *Orchestrator) newRun(prior *lockfile.Lockfile) *run {
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if prior == nil {
		prior = lockfile.Empty()
	}
	return &run{
		o:         o,
		prior:     prior.Clone(),
		visited:   map[string]bool{},
		nameLocks: map[string]*sync.Mutex{},
		updated:   lockfile.Empty(),
		permits:   make(chan struct{}, concurrency),
	}
}

// InstallOne resolves and installs a single (name, constraint) pair,
// returning the updated lockfile (§4.7 "Public contract").
func (o *Orchestrator) InstallOne(ctx context.Context, name, constraint string, prior *lockfile.Lockfile) (*lockfile.Lockfile, error) {
	return o.InstallSet(ctx, map[string]string{name: constraint}, prior)
}

// InstallSet installs every (name, constraint) pair in deps, recursively
// installing their transitive dependencies, and returns the updated
// lockfile (§4.7 "Public contract").
//
// Per §7's aggregation rule, a nil error means every top-level input
// package (and everything it transitively required) succeeded; otherwise
// the returned error is a *multierror.Error naming each failure, and the
// returned lockfile contains entries only for packages that succeeded.
func (o *Orchestrator) InstallSet(ctx context.Context, deps map[string]string, prior *lockfile.Lockfile) (*lockfile.Lockfile, error) {
	r := o.newRun(prior)
	err := r.spawnAll(ctx, deps)
	return r.updated, err
}

// spawnAll runs the per-package algorithm for each entry of deps
// concurrently, awaiting all of them and aggregating failures without
// letting one failure cancel its siblings (§4.7 "Await all children before
// continuing; aggregate their failures", §5).
func (r *run) spawnAll(ctx context.Context, deps map[string]string) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs *multierror.Error

	for name, constraint := range deps {
		name, constraint := name, constraint
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.installPackage(ctx, name, constraint); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs.ErrorOrNil()
}

// nameMutex returns the mutex serializing concurrent installs of name
// (lazily created, §4.7 "per-name mutex table").
func (r *run) nameMutex(name string) *sync.Mutex {
	r.nameLocksMu.Lock()
	defer r.nameLocksMu.Unlock()
	mu, ok := r.nameLocks[name]
	if !ok {
		mu = &sync.Mutex{}
		r.nameLocks[name] = mu
	}
	return mu
}

func (r *run) acquirePermit() { r.permits <- struct{}{} }
func (r *run) releasePermit() { <-r.permits }

// destinationFor computes the module-tree directory for name: moduleRoot is
// treated as an AbsoluteSystemPath anchor, name's "@scope/pkg" separator is
// translated to the platform separator only in the on-disk
// AnchoredSystemPath (§4.6 "Separator handling") — the in-memory name
// string handed to the registry/resolver is never mutated.
func destinationFor(moduleRoot, name string) string {
	nodeModules := crabbypath.New(moduleRoot).Join("node_modules")
	return crabbypath.FromSlash(name).RestoreAnchor(nodeModules).String()
}
