package artifacts

import (
	"context"
	"fmt"
	"strings"
)

// Programs that back volume operations.
const (
	programMincBBox     = "mincbbox"
	programMincReshape  = "mincreshape"
	programSurfaceMask2 = "surface_mask2"
	programMincMorph    = "mincmorph"
	programMincCalc     = "minccalc"
)

// Volume is a typed handle over a MINC volume (.mnc), commonly a binary
// mask. Its operation set is the closed set of volume operations; mesh
// transforms live on Surface and are not reachable from here.
type Volume struct {
	h *handle
}

// Volume wraps an existing caller-owned MINC file as a persistent artifact.
// The file is never deleted by the pipeline.
func (p *Pipeline) Volume(path string) (*Volume, error) {
	h, err := newPersistent(p, KindVolume, path)
	if err != nil {
		return nil, err
	}
	return &Volume{h: h}, nil
}

func newTemporaryVolume(p *Pipeline, path string) *Volume {
	return &Volume{h: newTemporary(p, KindVolume, path)}
}

// Path returns the volume file path.
func (v *Volume) Path() string { return v.h.Path() }

// Kind returns KindVolume.
func (v *Volume) Kind() Kind { return v.h.Kind() }

// Temporary reports whether the backing file is owned by the pipeline.
func (v *Volume) Temporary() bool { return v.h.Temporary() }

// Pin exempts the volume from release until the lease closes.
func (v *Volume) Pin() *Lease { return v.h.pin() }

// Release drops the volume's backing temporary file unless a pin lease
// protects it. Persistent volumes are unaffected. Safe to call more than
// once.
func (v *Volume) Release() { v.h.release() }

// Save copies the volume to a caller-chosen path.
func (v *Volume) Save(path string) error { return v.h.save(path) }

// ReshapeBBox crops the volume to its bounding box:
//
//	mincreshape -quiet -clobber $(mincbbox -mincreshape in.mnc) in.mnc out.mnc
func (v *Volume) ReshapeBBox(ctx context.Context) (*Volume, error) {
	bbox, err := v.h.p.inv.Capture(ctx, programMincBBox, []string{"-mincreshape", v.h.path})
	if err != nil {
		return nil, err
	}

	out, err := v.h.p.store.Allocate(".mnc")
	if err != nil {
		return nil, err
	}

	args := []string{"-quiet", "-clobber"}
	args = append(args, strings.Fields(string(bbox))...)
	args = append(args, v.h.path, out)
	if err := v.h.p.inv.Invoke(ctx, programMincReshape, args, out); err != nil {
		v.h.p.store.Release(out)
		return nil, err
	}

	v.h.release()
	return newTemporaryVolume(v.h.p, out), nil
}

// MaskWithSurface restricts the volume to the region bounded by the given
// surface via surface_mask2. Both the volume and the surface are consumed:
// each is released afterwards if it was an unpinned intermediate.
func (v *Volume) MaskWithSurface(ctx context.Context, s *Surface) (*Volume, error) {
	out, err := v.h.p.store.Allocate(".mnc")
	if err != nil {
		return nil, err
	}

	if err := v.h.p.inv.Invoke(ctx, programSurfaceMask2, []string{v.h.path, s.Path(), out}, out); err != nil {
		v.h.p.store.Release(out)
		return nil, err
	}

	s.h.release()
	v.h.release()
	return newTemporaryVolume(v.h.p, out), nil
}

// MinccalcU8 evaluates a voxel expression over this volume and any number
// of additional volumes, producing an unsigned byte result:
//
//	minccalc -clobber -quiet -unsigned -byte -expression EXPR in... out.mnc
//
// The expression refers to the inputs as A[0], A[1], ... in argument order,
// this volume first. All inputs are consumed: each is released afterwards if
// it was an unpinned intermediate.
func (v *Volume) MinccalcU8(ctx context.Context, expression string, others ...*Volume) (*Volume, error) {
	if expression == "" {
		return nil, fmt.Errorf("minccalc requires an expression")
	}

	out, err := v.h.p.store.Allocate(".mnc")
	if err != nil {
		return nil, err
	}

	args := []string{"-clobber", "-quiet", "-unsigned", "-byte", "-expression", expression, v.h.path}
	for _, o := range others {
		args = append(args, o.h.path)
	}
	args = append(args, out)
	if err := v.h.p.inv.Invoke(ctx, programMincCalc, args, out); err != nil {
		v.h.p.store.Release(out)
		return nil, err
	}

	for _, o := range others {
		o.h.release()
	}
	v.h.release()
	return newTemporaryVolume(v.h.p, out), nil
}

// Dilate grows the mask by the given number of voxels using successive
// mincmorph dilations.
func (v *Volume) Dilate(ctx context.Context, voxels int) (*Volume, error) {
	if voxels < 1 {
		return nil, fmt.Errorf("dilation requires at least 1 voxel, got %d", voxels)
	}

	out, err := v.h.p.store.Allocate(".mnc")
	if err != nil {
		return nil, err
	}

	args := []string{"-successive", strings.Repeat("D", voxels), v.h.path, out}
	if err := v.h.p.inv.Invoke(ctx, programMincMorph, args, out); err != nil {
		v.h.p.store.Release(out)
		return nil, err
	}

	v.h.release()
	return newTemporaryVolume(v.h.p, out), nil
}
