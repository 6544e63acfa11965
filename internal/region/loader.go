package region

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Loader resolves one view's descriptor data from its backing storage.
// Implementations must be safe for concurrent use.
type Loader interface {
	Load(view *scene.View) (*Set, error)
}

// FileLoader reads descriptor files from a directory, one per view, named
// after the view's image basename: images/img_001.jpg -> dir/img_001.desc.
type FileLoader struct {
	Dir string
	// Descriptor is the declared layout; loaded sets must agree with it.
	Descriptor scene.DescriptorInfo
}

// NewFileLoader creates a loader over the given descriptor directory.
func NewFileLoader(dir string, info scene.DescriptorInfo) *FileLoader {
	return &FileLoader{Dir: dir, Descriptor: info}
}

// DescPath returns the descriptor file path for a view.
func (l *FileLoader) DescPath(view *scene.View) string {
	base := filepath.Base(view.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(l.Dir, stem+".desc")
}

// Load reads and validates a view's descriptor file.
func (l *FileLoader) Load(view *scene.View) (*Set, error) {
	path := l.DescPath(view)
	set, err := ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeRegionMissing,
			fmt.Sprintf("regions for view %d cannot be loaded from %q", view.ID, path), err)
	}
	if set.Type != l.Descriptor.Type {
		return nil, errors.New(errors.ErrCodeRegionMissing,
			fmt.Sprintf("view %d descriptor type %q does not match scene declaration %q",
				view.ID, set.Type, l.Descriptor.Type), nil)
	}
	if set.Dim != l.Descriptor.Dim {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("view %d descriptor dim %d does not match scene declaration %d",
				view.ID, set.Dim, l.Descriptor.Dim), nil)
	}
	return set, nil
}
