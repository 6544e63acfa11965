// Package scene loads the scene description: the list of views in the image
// collection and the declaration of the descriptor type they were described
// with. The catalog is read-only once loaded.
package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/openrecon/mvmatch/internal/errors"
)

// ViewID identifies one image in the collection.
type ViewID uint32

// DescriptorType declares the element type of every descriptor in the scene.
type DescriptorType string

const (
	// DescriptorScalar is a fixed-length float32 vector (e.g. SIFT, AKAZE-MSURF).
	DescriptorScalar DescriptorType = "scalar"
	// DescriptorBinary is a fixed-length binary code (e.g. AKAZE-MLDB, ORB).
	DescriptorBinary DescriptorType = "binary"
)

// View is one image of the collection. Immutable once loaded.
type View struct {
	ID     ViewID `json:"id"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DescriptorInfo declares the uniform descriptor layout of the collection.
type DescriptorInfo struct {
	Type DescriptorType `json:"type"`
	// Dim is the number of elements per descriptor: float32s for scalar
	// descriptors, bytes for binary codes.
	Dim int `json:"dim"`
}

// Catalog holds the scene views and descriptor declaration.
type Catalog struct {
	RootPath   string         `json:"root_path"`
	Descriptor DescriptorInfo `json:"descriptor"`
	Views      []View         `json:"views"`

	byID map[ViewID]*View
}

// Load reads and validates a scene file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError(
			fmt.Sprintf("scene file %q cannot be read", path), err)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidScene,
			fmt.Sprintf("scene file %q is malformed", path), err)
	}

	if err := cat.init(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// NewCatalog builds a catalog from already-parsed data, validating and
// indexing it the same way Load does.
func NewCatalog(rootPath string, info DescriptorInfo, views []View) (*Catalog, error) {
	cat := &Catalog{RootPath: rootPath, Descriptor: info, Views: views}
	if err := cat.init(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) init() error {
	if err := c.validate(); err != nil {
		return err
	}

	// Keep views ordered by id so iteration order is deterministic.
	sort.Slice(c.Views, func(i, j int) bool { return c.Views[i].ID < c.Views[j].ID })

	c.byID = make(map[ViewID]*View, len(c.Views))
	for i := range c.Views {
		c.byID[c.Views[i].ID] = &c.Views[i]
	}
	return nil
}

func (c *Catalog) validate() error {
	if len(c.Views) == 0 {
		return errors.New(errors.ErrCodeInvalidScene, "scene declares no views", nil)
	}
	switch c.Descriptor.Type {
	case DescriptorScalar, DescriptorBinary:
	default:
		return errors.New(errors.ErrCodeInvalidScene,
			fmt.Sprintf("unknown descriptor type %q", c.Descriptor.Type), nil)
	}
	if c.Descriptor.Dim <= 0 {
		return errors.New(errors.ErrCodeInvalidScene,
			fmt.Sprintf("descriptor dim must be positive, got %d", c.Descriptor.Dim), nil)
	}

	seen := make(map[ViewID]struct{}, len(c.Views))
	for _, v := range c.Views {
		if _, dup := seen[v.ID]; dup {
			return errors.New(errors.ErrCodeInvalidScene,
				fmt.Sprintf("duplicate view id %d", v.ID), nil)
		}
		seen[v.ID] = struct{}{}
		if v.Path == "" {
			return errors.New(errors.ErrCodeInvalidScene,
				fmt.Sprintf("view %d has no image path", v.ID), nil)
		}
	}
	return nil
}

// ViewCount returns the number of views in the scene.
func (c *Catalog) ViewCount() int {
	return len(c.Views)
}

// ViewByID looks up a view. Returns nil if the id is unknown.
func (c *Catalog) ViewByID(id ViewID) *View {
	return c.byID[id]
}

// ViewIDs returns all view ids in ascending order.
func (c *Catalog) ViewIDs() []ViewID {
	ids := make([]ViewID, 0, len(c.Views))
	for _, v := range c.Views {
		ids = append(ids, v.ID)
	}
	return ids
}

// ImagePath resolves a view's image path against the scene root.
func (c *Catalog) ImagePath(v *View) string {
	if filepath.IsAbs(v.Path) {
		return v.Path
	}
	return filepath.Join(c.RootPath, v.Path)
}
