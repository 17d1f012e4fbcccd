// Package models resolves bundled reference models under the shared MNI
// data directory. Resolved files are wrapped as persistent artifacts: the
// pipeline reads them but never deletes them.
package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmni/mnipipe/pkg/artifacts"
)

// EnvDataPath is the environment variable naming the shared data root.
const EnvDataPath = "MNI_DATAPATH"

// WhiteModel320 is the 320-triangle white matter starting model used to
// seed hemisphere surface extraction.
const WhiteModel320 = "surface-extraction/white_model_320.obj"

// Side selects a brain hemisphere.
type Side string

const (
	// SideLeft is the left hemisphere.
	SideLeft Side = "left"
	// SideRight is the right hemisphere.
	SideRight Side = "right"
)

// ReferenceDataNotFoundError indicates the shared data root or a specific
// bundled reference file is missing. It names both the configured root and
// the missing relative path, since a misconfigured data root is the common
// operational failure here.
type ReferenceDataNotFoundError struct {
	Root         string
	RelativePath string
}

// Error implements the error interface.
func (e *ReferenceDataNotFoundError) Error() string {
	if e.RelativePath == "" {
		return fmt.Sprintf("shared data root %q does not exist (set %s)", e.Root, EnvDataPath)
	}
	return fmt.Sprintf("reference data %q not found under data root %q", e.RelativePath, e.Root)
}

// IsReferenceDataNotFound reports whether err is a ReferenceDataNotFoundError.
func IsReferenceDataNotFound(err error) bool {
	var target *ReferenceDataNotFoundError
	return errors.As(err, &target)
}

// Resolver looks up bundled reference files under a shared data root.
type Resolver struct {
	root string
	p    *artifacts.Pipeline
}

// NewResolver creates a Resolver rooted at root, or at $MNI_DATAPATH when
// root is empty. The root must exist.
func NewResolver(p *artifacts.Pipeline, root string) (*Resolver, error) {
	if root == "" {
		root = os.Getenv(EnvDataPath)
	}
	if root == "" {
		return nil, &ReferenceDataNotFoundError{Root: "(unset)"}
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &ReferenceDataNotFoundError{Root: root}
	}
	return &Resolver{root: root, p: p}, nil
}

// Root returns the resolved shared data root.
func (r *Resolver) Root() string {
	return r.root
}

// Path resolves a relative reference path to an absolute path under the
// data root, verifying the file exists.
func (r *Resolver) Path(rel string) (string, error) {
	abs := filepath.Join(r.root, rel)
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", &ReferenceDataNotFoundError{Root: r.root, RelativePath: rel}
	}
	return abs, nil
}

// Surface resolves a bundled mesh and wraps it as a persistent surface.
func (r *Resolver) Surface(rel string) (*artifacts.Surface, error) {
	abs, err := r.Path(rel)
	if err != nil {
		return nil, err
	}
	return r.p.Surface(abs)
}

// Volume resolves a bundled volume and wraps it as a persistent volume.
func (r *Resolver) Volume(rel string) (*artifacts.Volume, error) {
	abs, err := r.Path(rel)
	if err != nil {
		return nil, err
	}
	return r.p.Volume(abs)
}

// SphereModel returns the white matter starting model positioned for the
// given hemisphere: the left model slides 25 units left, the right model is
// mirrored across x and slides 25 units right. An empty side returns the
// centered model unchanged.
func (r *Resolver) SphereModel(ctx context.Context, side Side) (*artifacts.Surface, error) {
	base, err := r.Surface(WhiteModel320)
	if err != nil {
		return nil, err
	}
	switch side {
	case SideLeft:
		return base.SlideLeft(ctx)
	case SideRight:
		flipped, err := base.FlipX(ctx)
		if err != nil {
			return nil, err
		}
		return flipped.SlideRight(ctx)
	case "":
		return base, nil
	default:
		return nil, fmt.Errorf("unknown hemisphere side: %q", side)
	}
}
