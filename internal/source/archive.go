package source

import (
	"context"

	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/storage"
)

type archiveReader interface {
	GetMatchFile(ctx context.Context, key model.MatchKey) (*storage.MatchFile, error)
}

// Archive serves match files previously imported into the local archive.
type Archive struct {
	db archiveReader
}

// NewArchive wraps an open archive.
func NewArchive(db archiveReader) *Archive {
	return &Archive{db: db}
}

func (a *Archive) String() string { return "archive" }

// Fetch returns the archived file for key.
func (a *Archive) Fetch(ctx context.Context, key model.MatchKey) (*File, error) {
	f, err := a.db.GetMatchFile(ctx, key)
	if err != nil {
		return nil, unavailable(err, "archive %s", key)
	}
	return &File{Name: f.Name, Data: f.Data}, nil
}
