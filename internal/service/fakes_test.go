package service

import (
	"context"
	"sync"
	"time"

	"github.com/NoJuanNobody/home-health-aid-app/internal/geo"
	"github.com/NoJuanNobody/home-health-aid-app/internal/geocoding"
	"github.com/NoJuanNobody/home-health-aid-app/internal/store"
)

// fakeKV 仅用于单元测试（内存 KV + TTL）
type fakeKV struct {
	mu   sync.Mutex
	data map[string]fakeKVItem
}

type fakeKVItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]fakeKVItem)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	if !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(f.data, key)
		return "", store.ErrMiss
	}
	return item.value, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	f.data[key] = fakeKVItem{value: value, expires: exp}
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// fakeGeocoder returns canned answers without touching the network.
type fakeGeocoder struct {
	forward *geocoding.Result
	reverse *geocoding.Result

	forwardCalls int
	reverseCalls int
}

func (f *fakeGeocoder) AddressToCoordinates(_ context.Context, _ string, _ time.Duration, _ int) (*geocoding.Result, error) {
	f.forwardCalls++
	if f.forward == nil {
		return nil, geocoding.ErrUnresolved
	}
	return f.forward, nil
}

func (f *fakeGeocoder) CoordinatesToAddress(_ context.Context, _, _ float64, _ time.Duration, _ int) (*geocoding.Result, error) {
	f.reverseCalls++
	if f.reverse == nil {
		return nil, geocoding.ErrUnresolved
	}
	return f.reverse, nil
}

func (f *fakeGeocoder) DistanceBetween(p1, p2 geo.Point) float64 {
	return geo.DistanceMeters(p1, p2)
}

func geoPoint(lat, lng float64) geo.Point { return geo.Point{Lat: lat, Lng: lng} }
