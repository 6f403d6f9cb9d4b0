package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/model"
)

// ErrNotFound is returned when no file is archived under a match key.
var ErrNotFound = errors.New("match file not archived")

// MatchFile is one archived result file.
type MatchFile struct {
	Key        model.MatchKey
	Name       string // original file name; its extension selects the parser
	SHA256     string
	Size       int
	ImportedAt time.Time
	Data       []byte // decompressed contents; empty in listings
}

// PutMatchFile stores data under key, replacing any previous file. It reports
// false when the same bytes were already archived there.
func (db *DB) PutMatchFile(ctx context.Context, key model.MatchKey, name string, data []byte) (bool, error) {
	sum := fmt.Sprintf("%x", sha256.Sum256(data))

	var existing string
	err := db.conn.QueryRowContext(ctx,
		"SELECT sha256 FROM match_files WHERE round = ? AND match_index = ?",
		key.Round, key.Index).Scan(&existing)
	switch {
	case err == nil && existing == sum:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO match_files(round, match_index, name, sha256, size, content_zst, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.Round, key.Index, name, sum, len(data),
		encoder.EncodeAll(data, nil), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", key, err)
	}
	return true, nil
}

// GetMatchFile returns the archived file for key with its contents.
func (db *DB) GetMatchFile(ctx context.Context, key model.MatchKey) (*MatchFile, error) {
	f := MatchFile{Key: key}
	var (
		blob       []byte
		importedAt string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT name, sha256, size, content_zst, imported_at
		FROM match_files WHERE round = ? AND match_index = ?`,
		key.Round, key.Index).
		Scan(&f.Name, &f.SHA256, &f.Size, &blob, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	f.Data, err = decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	f.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
	return &f, nil
}

// ListMatchFiles returns every archived file without contents, ordered by
// round then match index.
func (db *DB) ListMatchFiles(ctx context.Context) ([]MatchFile, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT round, match_index, name, sha256, size, imported_at
		FROM match_files ORDER BY round, match_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchFile
	for rows.Next() {
		var (
			f          MatchFile
			importedAt string
		)
		if err := rows.Scan(&f.Key.Round, &f.Key.Index, &f.Name, &f.SHA256, &f.Size, &importedAt); err != nil {
			return nil, err
		}
		f.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteMatchFile removes one archived file. It reports whether one existed.
func (db *DB) DeleteMatchFile(ctx context.Context, key model.MatchKey) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM match_files WHERE round = ? AND match_index = ?", key.Round, key.Index)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteRound removes every archived file of a round and returns how many
// were deleted.
func (db *DB) DeleteRound(ctx context.Context, round string) (int, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM match_files WHERE round = ?", round)
	if err != nil {
		return 0, fmt.Errorf("delete round %s: %w", round, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
