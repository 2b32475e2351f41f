package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"feedcore/internal/blob/core"
)

func TestStore_Basic(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Put(ctx, "x/a.json", bytes.NewReader([]byte("{}")), core.PutOptions{Metadata: map[string]string{"m": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "x/a.json", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, rc, err := s.Get(ctx, "x/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "{}" || info.Metadata["m"] != "1" || info.ETag == "" {
		t.Fatalf("unexpected get %+v %q", info, b)
	}
	info.Metadata["m"] = "mutated"
	h, _ := s.Head(ctx, "x/a.json")
	if h.Metadata["m"] != "1" {
		t.Fatalf("metadata not isolated")
	}
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PutBytesReplacesAndLists(t *testing.T) {
	s := New()
	s.PutBytes("b.json", []byte("1"))
	s.PutBytes("a.json", []byte("2"))
	s.PutBytes("b.json", []byte("33"))
	list, err := s.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "a.json" || list[1].Size != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
}
