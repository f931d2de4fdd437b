package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample() *bytecode.Chunk {
	c := bytecode.NewChunk()
	c.EmitConstant(bytecode.Number(2), 1)
	c.EmitConstant(c.AddString([]byte("s")), 1)
	c.WriteOp(bytecode.OpReturn, 2)
	return c
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "1;"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get before Put = %v, want ErrNotFound", err)
	}

	want := sample()
	if err := s.Put(ctx, "1;", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "1;")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Disassemble("c") != want.Disassemble("c") {
		t.Errorf("cached chunk differs:\n%s\nwant\n%s", got.Disassemble("c"), want.Disassemble("c"))
	}

	if _, err := s.Get(ctx, "2;"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(other source) = %v, want ErrNotFound", err)
	}
}

func TestPutReplacesAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if err := s.Put(ctx, "src", sample()); err != nil {
		t.Fatal(err)
	}
	empty := bytecode.NewChunk()
	if err := s.Put(ctx, "src", empty); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "src")
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 0 {
		t.Errorf("replaced entry has %d bytes of code", got.Len())
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 1 || st.Bytes == 0 {
		t.Errorf("Stats() = %+v", st)
	}

	if err := s.Delete(ctx, "src"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "src"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
	if err := s.Delete(ctx, "src"); err != nil {
		t.Errorf("second Delete = %v", err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "x", sample()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, "x"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestKey(t *testing.T) {
	if Key("a") == Key("b") {
		t.Error("distinct sources share a key")
	}
	if len(Key("")) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(Key("")))
	}
}
