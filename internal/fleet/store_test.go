package fleet

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/truckflow/dispatch-core/pkg/enums"
)

type fakeRedis struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = string(value.([]byte))
	f.ttl[key] = ttl
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (f *fakeRedis) FleetSnapshotKey(scope string) string {
	return "fleet:" + scope
}

func TestRedisSnapshotStoreRoundTrip(t *testing.T) {
	backend := &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
	store, err := NewRedisSnapshotStore(backend, 5*time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	missing, err := store.Load(context.Background(), "org:7")
	if err != nil || missing != nil {
		t.Fatalf("expected nil snapshot on miss, got %+v err=%v", missing, err)
	}

	snapshot := &Snapshot{
		Scope:       "org:7",
		GeneratedAt: noon,
		Locations:   []Location{{DriverID: 9, Lat: 4.6, Lng: -74.1, Source: enums.LocationSourceGPS}},
		Bounds:      &Bounds{MinLat: 4.6, MinLng: -74.1, MaxLat: 4.6, MaxLng: -74.1},
	}
	if err := store.Save(context.Background(), snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	if backend.ttl["fleet:org:7"] != 5*time.Minute {
		t.Fatalf("expected snapshot ttl, got %v", backend.ttl["fleet:org:7"])
	}

	loaded, err := store.Load(context.Background(), "org:7")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Scope != "org:7" || len(loaded.Locations) != 1 || loaded.Locations[0].Source != enums.LocationSourceGPS || !loaded.GeneratedAt.Equal(noon) {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}
}

func TestNewRedisSnapshotStoreValidates(t *testing.T) {
	if _, err := NewRedisSnapshotStore(nil, time.Minute); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := NewRedisSnapshotStore(&fakeRedis{}, 0); err == nil {
		t.Fatal("expected error without ttl")
	}
}
