package iso9660

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WalkFunc is called once per directory record. Returning an error stops
// the walk.
type WalkFunc func(Entry) error

// Walk visits every entry of every directory, depth first and in on-disk
// order. The root itself is not visited. Self and parent pseudo-entries are
// passed to fn but not descended into, and a directory whose extent was
// already walked is not walked again.
func (img *Image) Walk(ctx context.Context, fn WalkFunc) error {
	return img.WalkConcurrent(ctx, 1, fn)
}

// WalkConcurrent is Walk with up to limit directories read at once. fn must
// be safe for concurrent use and entries arrive in no particular order.
func (img *Image) WalkConcurrent(ctx context.Context, limit int, fn WalkFunc) error {
	if limit < 1 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	w := &walker{
		img:     img,
		ctx:     ctx,
		group:   g,
		fn:      fn,
		visited: map[uint32]bool{img.root.lba: true},
	}
	g.Go(func() error {
		return w.visit(img.root, "")
	})
	return g.Wait()
}

type walker struct {
	img   *Image
	ctx   context.Context
	group *errgroup.Group
	fn    WalkFunc

	mu      sync.Mutex
	visited map[uint32]bool
}

// markVisited records lba and reports whether it is new.
func (w *walker) markVisited(lba uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visited[lba] {
		return false
	}
	w.visited[lba] = true
	return true
}

func (w *walker) visit(dir record, dirPath string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	entries, err := w.img.readDir(dir, dirPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.fn(e); err != nil {
			return err
		}
		if !e.IsDir || e.IsSelfOrParent() || !w.markVisited(e.LBA) {
			continue
		}
		child := record{identifier: e.Identifier, lba: e.LBA, size: e.Size, flags: flagDirectory}
		childPath := e.Path
		// Fan out when a slot is free; otherwise descend inline so a full
		// group never blocks on itself.
		if !w.group.TryGo(func() error { return w.visit(child, childPath) }) {
			if err := w.visit(child, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}
