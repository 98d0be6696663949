package igvf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type lab struct {
	ID    string `json:"@id"`
	Title string `json:"title"`
}

func TestGetOrFetchMissThenHit(t *testing.T) {
	cache := NewServerCache(NewMemoryStore())
	ctx := context.Background()

	var producerCalls int
	producer := func(context.Context) (*lab, error) {
		producerCalls++
		return &lab{ID: "/labs/a/", Title: "Lab A"}, nil
	}

	first, err := GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == nil || first.Title != "Lab A" {
		t.Fatalf("unexpected value %+v", first)
	}

	second, err := GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second == nil || second.Title != "Lab A" {
		t.Fatalf("unexpected cached value %+v", second)
	}
	if producerCalls != 1 {
		t.Errorf("expected the producer to run once, ran %d times", producerCalls)
	}
}

func TestGetOrFetchProducerError(t *testing.T) {
	cache := NewServerCache(NewMemoryStore())
	wantErr := errors.New("upstream down")

	_, err := GetOrFetch(context.Background(), cache, "lab-a", time.Minute, func(context.Context) (*lab, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected the producer's error passed through, got %v", err)
	}

	if _, ok := cache.Get(context.Background(), "lab-a"); ok {
		t.Error("expected nothing cached after a producer failure")
	}
}

func TestGetOrFetchNilNotCached(t *testing.T) {
	cache := NewServerCache(NewMemoryStore())
	ctx := context.Background()

	var producerCalls int
	producer := func(context.Context) (*lab, error) {
		producerCalls++
		return nil, nil
	}

	value, err := GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	if err != nil || value != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", value, err)
	}

	GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	if producerCalls != 2 {
		t.Errorf("expected nil results to not pin a cache entry, producer ran %d times", producerCalls)
	}
}

func TestGetOrFetchExpiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	cache := NewServerCache(store)
	ctx := context.Background()

	var producerCalls int
	producer := func(context.Context) (*lab, error) {
		producerCalls++
		return &lab{Title: "Lab A"}, nil
	}

	GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	if producerCalls != 1 {
		t.Fatalf("expected one producer run before expiry, got %d", producerCalls)
	}

	current = current.Add(2 * time.Minute)
	GetOrFetch(ctx, cache, "lab-a", time.Minute, producer)
	if producerCalls != 2 {
		t.Errorf("expected the expired entry refetched, producer ran %d times", producerCalls)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store unreachable")
}
func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("store unreachable")
}
func (failingStore) HGet(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("store unreachable")
}
func (failingStore) HSet(context.Context, string, string, string) error {
	return errors.New("store unreachable")
}
func (failingStore) Expire(context.Context, string, time.Duration) error {
	return errors.New("store unreachable")
}

func TestGetOrFetchStoreFailureDegradesToMiss(t *testing.T) {
	cache := NewServerCache(failingStore{}, WithCacheLogger(NewSimpleLogger()))

	value, err := GetOrFetch(context.Background(), cache, "lab-a", time.Minute, func(context.Context) (*lab, error) {
		return &lab{Title: "Lab A"}, nil
	})
	if err != nil {
		t.Fatalf("expected the data path to survive a failing store, got %v", err)
	}
	if value == nil || value.Title != "Lab A" {
		t.Errorf("expected the produced value, got %+v", value)
	}
}

func TestGetOrFetchFieldScoped(t *testing.T) {
	cache := NewServerCache(NewMemoryStore())
	ctx := context.Background()

	var aCalls, bCalls int
	GetOrFetchField(ctx, cache, "labs", "a", time.Minute, func(context.Context) (*lab, error) {
		aCalls++
		return &lab{Title: "Lab A"}, nil
	})
	GetOrFetchField(ctx, cache, "labs", "b", time.Minute, func(context.Context) (*lab, error) {
		bCalls++
		return &lab{Title: "Lab B"}, nil
	})

	got, err := GetOrFetchField(ctx, cache, "labs", "a", time.Minute, func(context.Context) (*lab, error) {
		aCalls++
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Title != "Lab A" {
		t.Errorf("expected the field-scoped cached value, got %+v", got)
	}
	if aCalls != 1 || bCalls != 1 {
		t.Errorf("expected one producer run per field, got a=%d b=%d", aCalls, bCalls)
	}
}

func TestFieldBucketExpiresTogether(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }

	cache := NewServerCache(store)
	ctx := context.Background()

	cache.HSet(ctx, "labs", "a", `{"title":"Lab A"}`, time.Minute)
	cache.HSet(ctx, "labs", "b", `{"title":"Lab B"}`, time.Minute)

	current = current.Add(2 * time.Minute)
	if _, ok := cache.HGet(ctx, "labs", "a"); ok {
		t.Error("expected field a to expire with the bucket")
	}
	if _, ok := cache.HGet(ctx, "labs", "b"); ok {
		t.Error("expected field b to expire with the bucket")
	}
}

func TestRetrieveCacheBackedData(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(`{"@id":"/labs/a/","title":"Lab A"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	cache := NewServerCache(NewMemoryStore())
	ctx := context.Background()

	first, err := RetrieveCacheBackedData(ctx, client, cache, "lab-a", "/labs/a/", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first["title"] != "Lab A" {
		t.Errorf("unexpected object %v", first)
	}

	second, err := RetrieveCacheBackedData(ctx, client, cache, "lab-a", "/labs/a/", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second["title"] != "Lab A" {
		t.Errorf("unexpected cached object %v", second)
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("expected one upstream request, got %d", got)
	}
}

func TestRetrieveCacheBackedDataFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	cache := NewServerCache(NewMemoryStore())

	data, err := RetrieveCacheBackedData(context.Background(), client, cache, "lab-a", "/labs/a/", time.Minute)
	if err != nil {
		t.Fatalf("expected a failed fetch to yield nil data, not an error; got %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data, got %v", data)
	}
}

func TestMemoryStoreBasics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, found, _ := store.Get(ctx, "missing"); found {
		t.Error("expected a miss for an unknown key")
	}

	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	value, found, err := store.Get(ctx, "k")
	if err != nil || !found || value != "v" {
		t.Errorf("expected (v, true), got (%q, %v, %v)", value, found, err)
	}
}

func TestMemoryStoreHSetPreservesExpiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	_ = store.HSet(ctx, "bucket", "a", "1")
	_ = store.Expire(ctx, "bucket", time.Minute)
	_ = store.HSet(ctx, "bucket", "b", "2")

	current = current.Add(30 * time.Second)
	if _, found, _ := store.HGet(ctx, "bucket", "a"); !found {
		t.Error("expected field a before expiry")
	}

	current = current.Add(time.Minute)
	if _, found, _ := store.HGet(ctx, "bucket", "b"); found {
		t.Error("expected the original expiry to survive the second HSet")
	}
}
