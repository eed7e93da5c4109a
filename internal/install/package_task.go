package install

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"

	"github.com/crabbypm/crabby/internal/extract"
	"github.com/crabbypm/crabby/internal/hooks"
	"github.com/crabbypm/crabby/internal/integrity"
	"github.com/crabbypm/crabby/internal/linker"
	"github.com/crabbypm/crabby/internal/lockfile"
	"github.com/crabbypm/crabby/internal/manifest"
	"github.com/crabbypm/crabby/internal/resolve"
)

// installPackage runs §4.7's per-package algorithm for one (name,
// constraint) pair: visited-set check, lock-hit/lock-miss branch, and
// (inside each branch) linking, hooks, and recursion into children.
func (r *run) installPackage(ctx context.Context, name, constraint string) error {
	key := lockKey(name, constraint)

	r.visitedMu.Lock()
	if r.visited[key] {
		r.visitedMu.Unlock()
		return nil
	}
	r.visited[key] = true
	r.visitedMu.Unlock()

	if entry, ok := r.prior.Get(name); ok && lockMatches(constraint, entry) {
		return r.installFromLock(ctx, name, entry)
	}
	return r.installFromRegistry(ctx, name, constraint)
}

// lockKey computes the visited-set key for a (name, constraint) pair,
// normalizing the empty constraint to "latest" so both spellings of "no
// constraint given" memoize to the same task (§4.7 step 1).
func lockKey(name, constraint string) string {
	if constraint == "" {
		constraint = "latest"
	}
	return name + "@" + constraint
}

// lockMatches implements §4.7 step 2's lax lock-hit rule (§9 open question
// 1): a bare name or "latest" constraint always hits the lock if any entry
// exists; otherwise the entry only hits if its locked version string is
// exactly equal to the constraint string, with no range interpretation.
// A range constraint therefore misses the lock even when the pinned version
// satisfies it (e.g. "^1.2.0" against a lock of "1.2.0"), and such a
// dependency is re-resolved against registry metadata on every run.
func lockMatches(constraint string, entry lockfile.Entry) bool {
	return constraint == "" || constraint == "latest" || constraint == entry.Version
}

// installFromLock implements the lock-hit branch (§4.7 step 2): the
// archive is fetched by its already-known (version, tarball, hash) via the
// archive cache — never through a fresh registry metadata call, preserving
// the "lock-fidelity" property (§8) — and the package's own recorded Deps
// mapping is used to recurse into children instead of a freshly parsed
// manifest, for the same reason. Hooks still run and executables still
// link: a lockfile entry never records those, so the extracted manifest is
// read regardless.
//
// The per-name mutex (§3 "Per-destination lock table") is held only across
// fetch-verify-extract and released the moment the extracted manifest has
// been parsed (§4.7 steps 3a-3d plus step 4); linking, hooks, and recursion
// into children (steps 5-9) run unlocked. Holding it any longer deadlocks a
// divergent-version diamond: a descendant that needs the same name under a
// different constraint string gets its own visit key and calls
// nameMutex(name).Lock() while an ancestor task for that name is still
// blocked awaiting that very descendant.
func (r *run) installFromLock(ctx context.Context, name string, entry lockfile.Entry) error {
	mu := r.nameMutex(name)
	mu.Lock()

	dest := destinationFor(r.o.ModuleRoot, name)

	r.acquirePermit()
	data, err := r.o.Cache.GetOrFill(name, entry.Version, func() ([]byte, error) {
		return r.o.Registry.FetchArchive(ctx, name, entry.Tarball)
	})
	if err != nil {
		r.releasePermit()
		mu.Unlock()
		return fmt.Errorf("fetch archive: %w", err)
	}

	if status, _, verr := integrity.Verify(bytes.NewReader(data), entry.Hash); verr == nil && status == integrity.Mismatch {
		r.o.Logger.Warn("content hash mismatch against lockfile entry", "name", name, "version", entry.Version)
		if r.o.StrictIntegrity {
			r.releasePermit()
			mu.Unlock()
			return fmt.Errorf("integrity mismatch for %s@%s", name, entry.Version)
		}
	}

	extractErr := extract.Extract(data, dest)
	r.releasePermit()
	if extractErr != nil {
		mu.Unlock()
		return fmt.Errorf("extract %s: %w", name, extractErr)
	}

	mf := r.readManifest(dest, name)
	mu.Unlock()

	if err := r.linkAndHook(ctx, dest, mf, hooks.PreInstall); err != nil {
		return err
	}

	if err := r.spawnAll(ctx, entry.Deps); err != nil {
		return err
	}

	if err := r.o.Hooks.Run(ctx, hooks.Install, dest, mf.Scripts); err != nil {
		return err
	}
	if err := r.o.Hooks.Run(ctx, hooks.PostInstall, dest, mf.Scripts); err != nil {
		return err
	}

	r.updatedMu.Lock()
	r.updated.Set(name, entry)
	r.updatedMu.Unlock()
	return nil
}

// installFromRegistry implements the lock-miss branch (§4.7 step 3): fetch
// metadata, resolve a concrete version, fetch+verify+extract the archive,
// then link/hook/recurse exactly as the lock-hit branch does, and finally
// record a fresh lockfile entry.
//
// Per §5's clarification (rather than step 3's literal ordering, which
// would place the concurrency permit around metadata resolution too), the
// permit is acquired only around the archive fetch and extract, since
// metadata resolution is explicitly exempted from the concurrency bound.
// The per-name mutex (§3 "Per-destination lock table") spans metadata fetch
// through manifest parse and is released there, before linking, hooks, and
// recursion (§4.7 steps 5-9) — see installFromLock's doc comment for why
// holding it any longer deadlocks a divergent-version diamond.
func (r *run) installFromRegistry(ctx context.Context, name, constraint string) error {
	mu := r.nameMutex(name)
	mu.Lock()

	registryName, rangeConstraint, isAlias := resolve.SplitAlias(constraint)
	lookupName, lookupConstraint := name, constraint
	if isAlias {
		lookupName, lookupConstraint = registryName, rangeConstraint
	}

	md, err := r.o.Registry.FetchMetadata(ctx, lookupName)
	if err != nil {
		mu.Unlock()
		return fmt.Errorf("fetch metadata: %w", err)
	}

	resolved, err := resolve.Resolve(lookupName, lookupConstraint, md, r.o.Logger)
	if err != nil {
		mu.Unlock()
		return fmt.Errorf("resolve version: %w", err)
	}

	dest := destinationFor(r.o.ModuleRoot, name)

	r.acquirePermit()
	data, fetchErr := r.o.Cache.GetOrFill(lookupName, resolved.Version, func() ([]byte, error) {
		return r.o.Registry.FetchArchive(ctx, lookupName, resolved.Tarball)
	})
	if fetchErr != nil {
		r.releasePermit()
		mu.Unlock()
		return fmt.Errorf("fetch archive: %w", fetchErr)
	}

	if status, _, verr := integrity.Verify(bytes.NewReader(data), resolved.Hash); verr == nil && status == integrity.Mismatch {
		r.o.Logger.Warn("content hash mismatch against registry metadata", "name", name, "version", resolved.Version)
		if r.o.StrictIntegrity {
			r.releasePermit()
			mu.Unlock()
			return fmt.Errorf("integrity mismatch for %s@%s", name, resolved.Version)
		}
	}

	extractErr := extract.Extract(data, dest)
	r.releasePermit()
	if extractErr != nil {
		mu.Unlock()
		return fmt.Errorf("extract %s: %w", name, extractErr)
	}

	mf := r.readManifest(dest, name)
	logEngineMismatch(r.o.Logger, name, mf, r.o.NodeVersion)
	mu.Unlock()

	if err := r.linkAndHook(ctx, dest, mf, hooks.PreInstall); err != nil {
		return err
	}

	deps := mf.AllDependencies()
	if err := r.spawnAll(ctx, deps); err != nil {
		return err
	}

	if err := r.o.Hooks.Run(ctx, hooks.Install, dest, mf.Scripts); err != nil {
		return err
	}
	if err := r.o.Hooks.Run(ctx, hooks.PostInstall, dest, mf.Scripts); err != nil {
		return err
	}

	r.updatedMu.Lock()
	r.updated.Set(name, lockfile.Entry{
		Version: resolved.Version,
		Tarball: resolved.Tarball,
		Hash:    resolved.Hash,
		Deps:    deps,
	})
	r.updatedMu.Unlock()
	return nil
}

// readManifest reads the manifest an extraction left at dest, falling back
// to an empty manifest on a parse failure rather than failing the whole
// install (§4.7 step 4, §7 "Malformed extracted manifest").
func (r *run) readManifest(dest, name string) *manifest.Manifest {
	mf, err := manifest.Load(manifestPath(dest))
	if err != nil {
		r.o.Logger.Warn("malformed extracted manifest, treating as dependency-free", "name", name, "error", err)
		return manifest.Empty(name)
	}
	return mf
}

// linkAndHook links mf's declared executables into the shared bin
// directory and runs a single named hook. Linking failures are logged but
// not fatal (a missing or malformed bin field shouldn't sink the install);
// hook failures are fatal for this package (§7 "Hook failure").
func (r *run) linkAndHook(ctx context.Context, dest string, mf *manifest.Manifest, hookName string) error {
	if execs := mf.Executables(); len(execs) > 0 {
		nodeModulesDir := filepath.Join(r.o.ModuleRoot, "node_modules")
		if err := linker.Link(nodeModulesDir, dest, execs); err != nil {
			r.o.Logger.Warn("failed to link executables", "name", mf.Name, "error", err)
		}
	}
	return r.o.Hooks.Run(ctx, hookName, dest, mf.Scripts)
}

// logEngineMismatch logs (never fails) when an extracted package's
// engines.node constraint doesn't admit nodeVersion, the configured runtime
// version string (SPEC_FULL.md supplemented feature 5). crabby never
// downloads or invokes a runtime itself (§1 Non-goals); this is purely an
// informational comparison against whatever version string the caller
// configured. An empty nodeVersion (the default, nothing configured) or a
// missing/unparsable engines.node entry skips the comparison entirely.
func logEngineMismatch(logger hclog.Logger, name string, mf *manifest.Manifest, nodeVersion string) {
	constraint, ok := mf.Engines["node"]
	if !ok || strings.TrimSpace(constraint) == "" {
		return
	}
	if nodeVersion == "" {
		logger.Debug("package declares an engines.node constraint; no runtime version configured to compare it against", "name", name, "engines", constraint)
		return
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		logger.Debug("package declares an unparsable engines.node constraint", "name", name, "engines", constraint)
		return
	}
	v, err := semver.NewVersion(nodeVersion)
	if err != nil {
		logger.Debug("configured runtime version is unparsable", "nodeVersion", nodeVersion)
		return
	}
	if !c.Check(v) {
		logger.Warn("package engines.node constraint does not match the configured runtime version", "name", name, "engines", constraint, "runtime", nodeVersion)
	}
}
