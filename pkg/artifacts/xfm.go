package artifacts

import (
	"context"
	"strconv"
)

// Programs that back transform-description artifacts.
const (
	programParam2XFM        = "param2xfm"
	programTransformObjects = "transform_objects"
)

// XFM is a typed handle over a transform description file (.xfm) produced
// by param2xfm. XFMs are created internally by geometric operations and
// released as soon as the transform they describe has been applied.
type XFM struct {
	h *handle
}

// Path returns the transform file path.
func (x *XFM) Path() string { return x.h.Path() }

// Kind returns KindTransform.
func (x *XFM) Kind() Kind { return x.h.Kind() }

// Temporary reports whether the backing file is owned by the pipeline.
func (x *XFM) Temporary() bool { return x.h.Temporary() }

// Save copies the transform description to a caller-chosen path.
func (x *XFM) Save(path string) error { return x.h.save(path) }

// newXFM runs param2xfm to encode one rigid transform parameter triple.
// op is a param2xfm flag such as "-translation" or "-scales".
func (p *Pipeline) newXFM(ctx context.Context, op string, x, y, z float64) (*XFM, error) {
	out, err := p.store.Allocate(".xfm")
	if err != nil {
		return nil, err
	}
	args := []string{"-clobber", op, formatCoord(x), formatCoord(y), formatCoord(z), out}
	if err := p.inv.Invoke(ctx, programParam2XFM, args, out); err != nil {
		p.store.Release(out)
		return nil, err
	}
	return &XFM{h: newTemporary(p, KindTransform, out)}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
