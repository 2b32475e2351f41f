package refdata

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"feedcore/internal/blob"
	"feedcore/internal/infra/blob/memory"
)

type countingStore struct {
	*memory.Store
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, key)
}

func TestCache_ReadJSONStripsBOMAndCaches(t *testing.T) {
	mem := memory.New()
	mem.PutBytes("a.json", append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"x":1}`)...))
	store := &countingStore{Store: mem}
	c := New(store)
	for i := 0; i < 3; i++ {
		obj, err := c.ReadObject(context.Background(), "a.json")
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if obj["x"] != float64(1) {
			t.Fatalf("unexpected doc %v", obj)
		}
	}
	if got := store.gets.Load(); got != 1 {
		t.Fatalf("expected one store read, got %d", got)
	}
}

func TestCache_MissingIsCached(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	c := New(store)
	for i := 0; i < 2; i++ {
		if _, err := c.ReadJSON(context.Background(), "nope.json"); !errors.Is(err, blob.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	ok, err := c.Exists(context.Background(), "nope.json")
	if err != nil || ok {
		t.Fatalf("expected absent, got %v %v", ok, err)
	}
	if got := store.gets.Load(); got != 1 {
		t.Fatalf("expected one store read, got %d", got)
	}
}

func TestCache_DecodeErrorNotCached(t *testing.T) {
	mem := memory.New()
	mem.PutBytes("bad.json", []byte(`{`))
	c := New(mem)
	_, err := c.ReadJSON(context.Background(), "bad.json")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Key != "bad.json" {
		t.Fatalf("expected decode error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("decode failure should not be cached")
	}
	if _, err := c.ReadObject(context.Background(), "bad.json"); err == nil {
		t.Fatalf("expected decode error on retry")
	}
}

func TestCache_ReadObjectRejectsArrays(t *testing.T) {
	mem := memory.New()
	mem.PutBytes("arr.json", []byte(`[1,2]`))
	c := New(mem)
	if _, err := c.ReadObject(context.Background(), "arr.json"); err == nil {
		t.Fatalf("expected object error")
	}
	doc, err := c.ReadJSON(context.Background(), "arr.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if arr, ok := doc.([]any); !ok || len(arr) != 2 {
		t.Fatalf("unexpected doc %v", doc)
	}
}

func TestCache_ConcurrentFirstReads(t *testing.T) {
	mem := memory.New()
	mem.PutBytes("shared.json", []byte(`{"ok":true}`))
	store := &countingStore{Store: mem}
	c := New(store)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ReadJSON(context.Background(), "shared.json"); err != nil {
				t.Errorf("read: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := store.gets.Load(); got != 1 {
		t.Fatalf("unexpected read count %d", got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", c.Len())
	}
}
