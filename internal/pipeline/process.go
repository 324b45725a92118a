package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chariotdev/chariot/internal/errs"
	"github.com/chariotdev/chariot/internal/recipe"
)

// process builds (or reuses the cached build of) id, recursing into its
// dependencies first, and returns the timestamp to propagate to its callers.
// looseCall is true when the edge this call was reached through is loose; it
// is the modifier on the specific edge that reached this call, the only
// place in the graph walk a "loose-ness" value is naturally available per
// visit (see DESIGN.md).
func (p *Pipeline) process(id int, inFlight map[int]bool, looseCall bool) (int64, error) {
	r := p.opts.Config.Recipe(id)

	if inFlight[id] {
		return 0, fmt.Errorf("%w: %s/%s", ErrCycle, r.Namespace, r.Name)
	}
	if ts, done := p.results[id]; done {
		return ts, nil
	}
	if p.failed[id] {
		return 0, fmt.Errorf("%w: %s/%s", ErrAttemptFail, r.Namespace, r.Name)
	}

	childInFlight := make(map[int]bool, len(inFlight)+1)
	for k := range inFlight {
		childInFlight[k] = true
	}
	childInFlight[id] = true

	var latest int64
	for _, dep := range p.opts.Config.DependencyMap[id] {
		childTs, err := p.process(dep.To, childInFlight, dep.Loose)
		if err != nil {
			return 0, err
		}
		if !dep.Loose && childTs > latest {
			latest = childTs
		}
	}

	hash, err := p.currentHash(r)
	if err != nil {
		return 0, err
	}

	if st, ok, err := p.readState(id); err != nil {
		return 0, err
	} else if ok && st.Fresh(latest, hash, looseCall, p.opts.IgnoreChanges) {
		p.results[id] = st.Timestamp
		return st.Timestamp, nil
	}

	if p.attempted[id] {
		p.failed[id] = true
		return 0, fmt.Errorf("%w: %s/%s", ErrAttemptFail, r.Namespace, r.Name)
	}
	p.attempted[id] = true

	ts, err := p.build(r, hash)
	if err != nil {
		p.failed[id] = true
		return 0, err
	}

	p.results[id] = ts
	return ts, nil
}

// build performs the actual rebuild of r once process has determined its
// on-disk state is stale.
func (p *Pipeline) build(r *recipe.Recipe, hash string) (int64, error) {
	log := p.logRecipe(r)
	start := time.Now()
	now := start.Unix()

	recipePath := p.recipePath(r)
	if err := os.MkdirAll(recipePath, 0755); err != nil {
		return 0, errs.Wrap(ErrFileSystem, err)
	}

	provisional := recipe.State{Intact: false, Invalidated: false, Timestamp: now, Size: 0, Hash: hash}
	if err := p.writeState(r.ID, provisional); err != nil {
		return 0, err
	}

	logsDir := filepath.Join(recipePath, "logs")
	if err := os.RemoveAll(logsDir); err != nil {
		return 0, errs.Wrap(ErrFileSystem, err)
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return 0, errs.Wrap(ErrFileSystem, err)
	}

	var stageErr error
	if r.Namespace == recipe.Source {
		stageErr = p.runSource(r, recipePath, logsDir)
	} else {
		stageErr = p.runBuildStages(r, recipePath, logsDir)
	}
	if stageErr != nil {
		return 0, errs.Wrap(ErrStage, stageErr)
	}

	size, err := dirSize(recipePath)
	if err != nil {
		return 0, errs.Wrap(ErrFileSystem, err)
	}

	final := recipe.State{Intact: true, Invalidated: false, Timestamp: now, Size: size, Hash: hash}
	if err := p.writeState(r.ID, final); err != nil {
		return 0, err
	}

	log.Info("recipe built", "duration", time.Since(start), "size", size)
	return now, nil
}
