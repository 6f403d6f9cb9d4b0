// Package source fetches raw match result files addressed by round and
// match index.
//
// Every failure to produce a file is reported as ErrMatchUnavailable: a
// missing, empty or unreachable match is simply not played yet.
package source

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/config"
	"github.com/pable/squad-standings/internal/model"
	"github.com/pable/squad-standings/internal/storage"
)

// ErrMatchUnavailable marks a match whose file could not be produced.
var ErrMatchUnavailable = errors.New("match unavailable")

// File is one fetched match file.
type File struct {
	Name string // path or object key; its extension selects the parser
	Data []byte
}

// Source fetches match files.
type Source interface {
	Fetch(ctx context.Context, key model.MatchKey) (*File, error)
	String() string
}

// Layout expands a match key into a source-relative path.
type Layout struct {
	Template string
}

// Path substitutes {round} and {match} in the template.
func (l Layout) Path(key model.MatchKey) string {
	return strings.NewReplacer(
		"{round}", key.Round,
		"{match}", strconv.Itoa(key.Index),
	).Replace(l.Template)
}

func unavailable(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Mark(errors.Newf(format, args...), ErrMatchUnavailable)
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrMatchUnavailable)
}

// maxFileSize caps the size of a fetched match file.
const maxFileSize = 32 << 20

// readLimited reads all of r, failing when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errors.Newf("file exceeds %d bytes", limit)
	}
	return data, nil
}

// Open builds the source selected by cfg. archive is only used, and must be
// non-nil, for the archive kind.
func Open(ctx context.Context, cfg *config.Config, archive *storage.DB) (Source, error) {
	layout := Layout{Template: cfg.Schedule.PathTemplate}
	switch cfg.Source.Kind {
	case config.SourceDir, "":
		return NewDir(cfg.Source.Dir, layout), nil
	case config.SourceHTTP:
		return NewHTTP(cfg.Source.BaseURL, layout, cfg.FetchTimeout), nil
	case config.SourceS3:
		return NewS3(ctx, cfg.Source, layout)
	case config.SourceArchive:
		if archive == nil {
			return nil, errors.New("archive source requires an open archive")
		}
		return NewArchive(archive), nil
	default:
		return nil, errors.Mark(errors.Newf("unknown source kind %q", cfg.Source.Kind), config.ErrInvalidConfig)
	}
}

// defaultTimeout bounds HTTP fetches when no timeout is configured.
const defaultTimeout = 10 * time.Second
