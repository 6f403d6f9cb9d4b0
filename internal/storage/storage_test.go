package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/pable/squad-standings/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var sampleCSV = []byte("Name,Kills,Damage Dealt,Assists,Win Place,Time Survived\nAce,3,412.5,1,2,1500\n")

func TestMatchFileRoundTrip(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	key := model.MatchKey{Round: "DIA1", Index: 2}

	changed, err := db.PutMatchFile(ctx, key, "jogo2.csv", sampleCSV)
	if err != nil {
		t.Fatalf("PutMatchFile: %v", err)
	}
	if !changed {
		t.Error("first import should report a change")
	}

	f, err := db.GetMatchFile(ctx, key)
	if err != nil {
		t.Fatalf("GetMatchFile: %v", err)
	}
	if !bytes.Equal(f.Data, sampleCSV) {
		t.Errorf("data mismatch: got %q", f.Data)
	}
	if f.Name != "jogo2.csv" || f.Size != len(sampleCSV) || len(f.SHA256) != 64 {
		t.Errorf("unexpected metadata %+v", f)
	}
	if f.ImportedAt.IsZero() {
		t.Error("expected import time")
	}
}

func TestPutMatchFileIdempotency(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	key := model.MatchKey{Round: "DIA1", Index: 1}

	if _, err := db.PutMatchFile(ctx, key, "jogo1.csv", sampleCSV); err != nil {
		t.Fatal(err)
	}
	changed, err := db.PutMatchFile(ctx, key, "jogo1.csv", sampleCSV)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("re-importing identical bytes should not report a change")
	}

	corrected := append(append([]byte{}, sampleCSV...), []byte("Bolt,1,0,0,2,1400\n")...)
	changed, err = db.PutMatchFile(ctx, key, "jogo1.csv", corrected)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("a corrected file should replace the archived one")
	}
	f, err := db.GetMatchFile(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.Data, corrected) {
		t.Error("expected corrected contents")
	}

	list, err := db.ListMatchFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 archived file, got %d", len(list))
	}
}

func TestGetMatchFileNotFound(t *testing.T) {
	db := openMemDB(t)
	_, err := db.GetMatchFile(context.Background(), model.MatchKey{Round: "DIA9", Index: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	keys := []model.MatchKey{
		{Round: "DIA2", Index: 1},
		{Round: "DIA1", Index: 3},
		{Round: "DIA1", Index: 1},
	}
	for _, k := range keys {
		if _, err := db.PutMatchFile(ctx, k, "x.csv", sampleCSV); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.ListMatchFiles(ctx)
	if err != nil {
		t.Fatalf("ListMatchFiles: %v", err)
	}
	var got []string
	for _, f := range list {
		got = append(got, f.Key.String())
		if f.Data != nil {
			t.Error("listing should not carry contents")
		}
	}
	want := []string{"DIA1/1", "DIA1/3", "DIA2/1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}

	ok, err := db.DeleteMatchFile(ctx, model.MatchKey{Round: "DIA2", Index: 1})
	if err != nil || !ok {
		t.Fatalf("DeleteMatchFile = %v, %v", ok, err)
	}
	ok, _ = db.DeleteMatchFile(ctx, model.MatchKey{Round: "DIA2", Index: 1})
	if ok {
		t.Error("second delete should report nothing removed")
	}

	n, err := db.DeleteRound(ctx, "DIA1")
	if err != nil {
		t.Fatalf("DeleteRound: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteRound removed %d, want 2", n)
	}
	list, _ = db.ListMatchFiles(ctx)
	if len(list) != 0 {
		t.Errorf("expected empty archive, got %d", len(list))
	}
}
