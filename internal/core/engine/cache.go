package engine

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/navigation"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/pkg/concurrent"
)

// arenaEntry is a fully built arena ready to be published.
type arenaEntry struct {
	mode, name string
	geometry   *arena.Geometry
	mesh       *navigation.Mesh
}

func arenaKey(mode, name string) string {
	return mode + "/" + name
}

// ParseArena splits a "mode" or "mode/map" reference and resolves it.
func ParseArena(ref string) (mode, name string, err error) {
	mode, name, _ = strings.Cut(ref, "/")
	return arena.Resolve(mode, name)
}

// Preload builds the referenced arenas into the cache, in parallel, without
// publishing any of them. Arenas already cached are skipped.
func (e *Engine) Preload(refs ...string) error {
	if e.closed.Load() {
		return ErrClosed
	}

	start := time.Now()

	e.initMu.Lock()
	defer e.initMu.Unlock()

	type target struct{ mode, name string }
	var targets []target
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		mode, name, err := ParseArena(ref)
		if err != nil {
			return errors.Wrapf(err, "preload %q", ref)
		}
		key := arenaKey(mode, name)
		if _, ok := seen[key]; ok || e.arenas.Contains(key) {
			continue
		}
		seen[key] = struct{}{}
		targets = append(targets, target{mode, name})
	}

	entries, err := concurrent.ParallelMap(targets, 0, func(_ int, t target) (*arenaEntry, error) {
		return e.build(t.mode, t.name)
	})
	if err != nil {
		return err
	}
	for _, entry := range entries {
		e.arenas.Add(arenaKey(entry.mode, entry.name), entry)
	}

	e.logger.Info("arenas preloaded",
		log.Int("built", len(entries)),
		log.Int("cached", e.arenas.Len()),
		log.Duration("took", time.Since(start)),
	)
	return nil
}
