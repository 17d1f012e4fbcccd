package artifacts

import "context"

// Surface is a typed handle over a polygonal mesh (.obj). Its operation set
// is the closed set of geometric transforms meaningful for meshes; volume
// operations live on Volume and are not reachable from here.
type Surface struct {
	h *handle
}

// Surface wraps an existing caller-owned mesh file as a persistent
// artifact. The file is never deleted by the pipeline.
func (p *Pipeline) Surface(path string) (*Surface, error) {
	h, err := newPersistent(p, KindSurface, path)
	if err != nil {
		return nil, err
	}
	return &Surface{h: h}, nil
}

func newTemporarySurface(p *Pipeline, path string) *Surface {
	return &Surface{h: newTemporary(p, KindSurface, path)}
}

// Path returns the mesh file path.
func (s *Surface) Path() string { return s.h.Path() }

// Kind returns KindSurface.
func (s *Surface) Kind() Kind { return s.h.Kind() }

// Temporary reports whether the backing file is owned by the pipeline.
func (s *Surface) Temporary() bool { return s.h.Temporary() }

// Pin exempts the surface from release until the lease closes, so it can
// feed more than one downstream chain.
func (s *Surface) Pin() *Lease { return s.h.pin() }

// Release drops the surface's backing temporary file unless a pin lease
// protects it. Persistent surfaces are unaffected. Safe to call more than
// once.
func (s *Surface) Release() { s.h.release() }

// Save copies the mesh to a caller-chosen path. Terminal in a chain; the
// surface's own temporary file is still reclaimed under the normal rules.
func (s *Surface) Save(path string) error { return s.h.save(path) }

// FlipX reflects the mesh across the x axis.
func (s *Surface) FlipX(ctx context.Context) (*Surface, error) {
	return s.transform(ctx, "-scales", -1, 1, 1)
}

// Translate moves the mesh by (x, y, z).
func (s *Surface) Translate(ctx context.Context, x, y, z float64) (*Surface, error) {
	return s.transform(ctx, "-translation", x, y, z)
}

// SlideLeft translates the mesh 25 units in the -x direction, the
// conventional offset for positioning a hemisphere model on the left.
func (s *Surface) SlideLeft(ctx context.Context) (*Surface, error) {
	return s.Translate(ctx, -25, 0, 0)
}

// SlideRight translates the mesh 25 units in the +x direction.
func (s *Surface) SlideRight(ctx context.Context) (*Surface, error) {
	return s.Translate(ctx, 25, 0, 0)
}

// Scale scales the mesh by (x, y, z) about the origin.
func (s *Surface) Scale(ctx context.Context, x, y, z float64) (*Surface, error) {
	return s.transform(ctx, "-scales", x, y, z)
}

// transform applies one rigid transform: encode the parameters as a
// temporary .xfm, run transform_objects into a fresh temporary mesh,
// release the .xfm (never needed again), then release this surface if it
// was an unpinned intermediate. On failure the inputs released so far stay
// released; the failed chain's artifacts are no longer useful.
func (s *Surface) transform(ctx context.Context, op string, x, y, z float64) (*Surface, error) {
	xfm, err := s.h.p.newXFM(ctx, op, x, y, z)
	if err != nil {
		return nil, err
	}

	out, err := s.h.p.store.Allocate(".obj")
	if err != nil {
		xfm.h.release()
		return nil, err
	}

	err = s.h.p.inv.Invoke(ctx, programTransformObjects, []string{s.h.path, xfm.Path(), out}, out)
	xfm.h.release()
	if err != nil {
		s.h.p.store.Release(out)
		return nil, err
	}

	s.h.release()
	return newTemporarySurface(s.h.p, out), nil
}
