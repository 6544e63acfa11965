package match

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/pairs"
	"github.com/openrecon/mvmatch/internal/scene"
)

// storeVersion is the match file format version.
const storeVersion = 1

// storeFile is the on-disk representation of a Matches set. Pairs are
// sorted by canonical key before encoding, so the same result set always
// produces the same bytes.
type storeFile struct {
	Version int
	Pairs   []storePair
}

type storePair struct {
	I, J            uint32
	Correspondences []Correspondence
}

// Save writes the complete result set atomically: the file is first written
// to a temp path and then renamed, so a failed write never leaves a partial
// file at path.
func Save(matches Matches, path string) error {
	file := storeFile{Version: storeVersion, Pairs: make([]storePair, 0, len(matches))}
	for _, p := range sortedKeys(matches) {
		file.Pairs = append(file.Pairs, storePair{
			I:               uint32(p.I),
			J:               uint32(p.J),
			Correspondences: matches[p],
		})
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("cannot create match file %q", path), err)
	}

	if err := gob.NewEncoder(f).Encode(file); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("cannot encode match file %q", path), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("cannot flush match file %q", path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(errors.ErrCodeWriteFailed,
			fmt.Sprintf("cannot finalize match file %q", path), err)
	}
	return nil
}

// Load reads a match file written by Save.
func Load(path string) (Matches, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(
			fmt.Sprintf("match file %q cannot be read", path), err)
	}
	defer f.Close()

	var file storeFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return nil, errors.New(errors.ErrCodeFileCorrupt,
			fmt.Sprintf("match file %q is malformed", path), err)
	}
	if file.Version != storeVersion {
		return nil, errors.New(errors.ErrCodeFileCorrupt,
			fmt.Sprintf("match file %q has unsupported version %d", path, file.Version), nil)
	}

	matches := make(Matches, len(file.Pairs))
	for _, p := range file.Pairs {
		if p.I >= p.J {
			return nil, errors.New(errors.ErrCodeFileCorrupt,
				fmt.Sprintf("match file %q holds non-canonical pair (%d,%d)", path, p.I, p.J), nil)
		}
		key := pairs.Pair{I: scene.ViewID(p.I), J: scene.ViewID(p.J)}
		if _, dup := matches[key]; dup {
			return nil, errors.New(errors.ErrCodeFileCorrupt,
				fmt.Sprintf("match file %q holds duplicate pair (%d,%d)", path, p.I, p.J), nil)
		}
		matches[key] = p.Correspondences
	}
	return matches, nil
}

// Exists reports whether a match file is already present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedKeys(m Matches) []pairs.Pair {
	set := make(pairs.Set, len(m))
	for p := range m {
		set[p] = struct{}{}
	}
	return set.Sorted()
}
