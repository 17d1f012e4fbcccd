// Package artifacts models each on-disk pipeline file as a typed handle
// exposing only the operations valid for its kind. Surfaces carry geometric
// transforms, volumes carry MINC operations, and transform descriptions are
// short-lived internals. Every operation invokes an external program, wraps
// the result in a new temporary handle, and releases the inputs it consumed
// once they are no longer referenced.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/openmni/mnipipe/pkg/scratch"
)

// Kind identifies what an artifact's backing file contains. It is fixed at
// construction and never changes.
type Kind string

const (
	// KindSurface is a polygonal mesh (.obj).
	KindSurface Kind = "surface"
	// KindVolume is a MINC volume (.mnc).
	KindVolume Kind = "volume"
	// KindTransform is a transform description (.xfm).
	KindTransform Kind = "transform"
)

// Invoker runs external transformation programs. The production
// implementation is runner.Runner; tests substitute a fake that records
// commands and fabricates outputs.
type Invoker interface {
	// Invoke runs program with args and verifies declaredOutput exists and
	// is non-empty afterwards.
	Invoke(ctx context.Context, program string, args []string, declaredOutput string) error
	// Capture runs program with args and returns its captured stdout.
	Capture(ctx context.Context, program string, args []string) ([]byte, error)
}

// Pipeline binds an Invoker to a scratch store. All artifact handles are
// created through it so their operations share the same program runner and
// temporary storage.
type Pipeline struct {
	inv   Invoker
	store *scratch.Store
}

// New creates a Pipeline.
func New(inv Invoker, store *scratch.Store) *Pipeline {
	return &Pipeline{inv: inv, store: store}
}

// Store returns the pipeline's scratch store.
func (p *Pipeline) Store() *scratch.Store {
	return p.store
}

// handle is the lifecycle state shared by every typed artifact. A handle is
// either persistent (caller-owned, never deleted) or temporary (owned by
// the pipeline, deleted exactly once after its last consumer releases it,
// unless a pin lease protects it).
type handle struct {
	path      string
	kind      Kind
	temporary bool
	p         *Pipeline

	mu         sync.Mutex
	pins       int
	releaseDue bool
	removed    bool
}

func newPersistent(p *Pipeline, kind Kind, path string) (*handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("not a readable file: %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("not a file: %s", path)
	}
	return &handle{path: path, kind: kind, p: p}, nil
}

func newTemporary(p *Pipeline, kind Kind, path string) *handle {
	return &handle{path: path, kind: kind, temporary: true, p: p}
}

// Path returns the artifact's backing file path.
func (h *handle) Path() string { return h.path }

// Kind returns the artifact's kind tag.
func (h *handle) Kind() Kind { return h.kind }

// Temporary reports whether the backing file is owned by the pipeline.
func (h *handle) Temporary() bool { return h.temporary }

// release marks the handle as no longer needed by its consumer. Persistent
// handles are untouched. A pinned handle's file survives until its last
// lease closes; otherwise the backing temporary file is removed now.
// Releasing twice is a no-op.
func (h *handle) release() {
	if !h.temporary {
		return
	}
	h.mu.Lock()
	h.releaseDue = true
	if h.pins > 0 || h.removed {
		h.mu.Unlock()
		return
	}
	h.removed = true
	h.mu.Unlock()
	h.p.store.Release(h.path)
}

// pin exempts the handle from release for the lifetime of the returned
// lease. Callers must close the lease on every exit path, typically with
// defer. Pinning is the sole mechanism for feeding one intermediate into
// more than one downstream chain.
func (h *handle) pin() *Lease {
	h.mu.Lock()
	h.pins++
	h.mu.Unlock()
	return &Lease{h: h}
}

func (h *handle) unpin() {
	h.mu.Lock()
	h.pins--
	due := h.temporary && h.releaseDue && h.pins == 0 && !h.removed
	if due {
		h.removed = true
	}
	h.mu.Unlock()
	if due {
		h.p.store.Release(h.path)
	}
}

// save copies the backing file to a caller-chosen destination. The handle
// itself is unaffected; its temporary file is still reclaimed under the
// normal rules.
func (h *handle) save(dst string) error {
	src, err := os.Open(h.path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", h.path, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return out.Close()
}

// Lease holds a pin on one artifact. While open, the artifact's backing
// file is guaranteed to exist and be unchanged. Close is idempotent; once
// the last lease on an already-released artifact closes, the backing file
// is removed immediately.
type Lease struct {
	h    *handle
	once sync.Once
}

// Close lifts the exemption. Safe to call more than once.
func (l *Lease) Close() {
	l.once.Do(l.h.unpin)
}
