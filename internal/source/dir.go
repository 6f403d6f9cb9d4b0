package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pable/squad-standings/internal/model"
)

// Dir reads match files from a local directory tree.
type Dir struct {
	root   string
	layout Layout
}

// NewDir returns a source rooted at root.
func NewDir(root string, layout Layout) *Dir {
	return &Dir{root: root, layout: layout}
}

func (d *Dir) String() string { return "dir:" + d.root }

// Fetch reads the file for key.
func (d *Dir) Fetch(ctx context.Context, key model.MatchKey) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err, "%s", key)
	}
	path := filepath.Join(d.root, filepath.FromSlash(d.layout.Path(key)))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, unavailable(err, "read %s", path)
	}
	return &File{Name: path, Data: data}, nil
}
