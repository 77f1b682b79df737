package dentsi

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/dentsi/cache"
)

func TestFetch_FallbackOnConnectionError(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	url := backend.server.URL
	backend.server.Close()

	c := newTestClient(t, url)
	ctx := context.Background()

	health := c.Health(ctx)
	assert.True(t, health.Fallback)
	assert.Equal(t, "offline", health.Value.Status)
	assert.False(t, health.Value.Healthy())

	clinics := c.Clinics(ctx)
	assert.True(t, clinics.Fallback)
	assert.NotNil(t, clinics.Value)
	assert.Empty(t, clinics.Value)

	stats := c.Stats(ctx, "c1")
	assert.True(t, stats.Fallback)
	assert.Equal(t, DashboardStats{}, stats.Value)

	for _, res := range []Result[[]Call]{
		c.Calls(ctx, ListOptions{Limit: 20}),
		c.RecentCalls(ctx),
		c.Escalations(ctx, ListOptions{}),
	} {
		assert.True(t, res.Fallback)
		assert.Empty(t, res.Value)
	}

	appts := c.Appointments(ctx, ListOptions{Limit: 50})
	assert.True(t, appts.Fallback)
	assert.Empty(t, appts.Value)

	patients := c.Patients(ctx)
	assert.True(t, patients.Fallback)
	assert.Empty(t, patients.Value)

	dh := c.DashboardHealth(ctx, "")
	assert.True(t, dh.Fallback)
	assert.Equal(t, "offline", dh.Value.Status)
}

func TestFetch_FallbackOnTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := newTestClient(t, backend.server.URL, WithTimeout(50*time.Millisecond))

	start := time.Now()
	res := c.Clinics(context.Background())
	assert.True(t, res.Fallback)
	assert.Empty(t, res.Value)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetch_FallbackOnBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"internal"}`, http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}},
		{"non-JSON body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>Application error</html>"))
		}},
		{"truncated JSON", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"id":"a"`))
		}},
		{"null data", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":null}`))
		}},
		{"wrong shape", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"data": map[string]string{"id": "not-a-list"}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newMockBackend(t, tt.handler)
			mc := cache.NewMemoryCache()
			c := newTestClient(t, backend.server.URL, WithCache(mc, time.Minute))

			res := c.Calls(context.Background(), ListOptions{ClinicID: "c1", Limit: 20})
			assert.True(t, res.Fallback)
			assert.False(t, res.Cached)
			assert.NotNil(t, res.Value)
			assert.Empty(t, res.Value)
			assert.Equal(t, 0, mc.Len(), "failures are never cached")
		})
	}
}

func TestFetch_UnwrapsDataEnvelope(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/dashboard/appointments":
			writeJSON(w, map[string]any{
				"data": []map[string]any{
					{"id": "a1", "service_type": "Root Canal", "status": "confirmed", "patient": map[string]string{"id": "p1", "name": "Ana"}},
					{"id": "a2", "service_type": "Cleaning", "status": "scheduled"},
				},
				"pagination": map[string]int{"page": 1, "limit": 50, "total": 2, "totalPages": 1},
			})
		case "/api/dashboard/stats":
			writeJSON(w, map[string]any{
				"success": true,
				"data": map[string]any{
					"calls":        map[string]any{"total": 10, "completed": 8, "successRate": 80.0},
					"appointments": map[string]any{"total": 4, "confirmed": 3},
					"revenue":      map[string]any{"estimated": 1620, "currency": "USD"},
				},
			})
		case "/clinics":
			writeJSON(w, []map[string]any{{"id": "c1", "name": "SmileCare", "services": []string{"cleaning"}}})
		}
	})
	c := newTestClient(t, backend.server.URL)
	ctx := context.Background()

	appts := c.Appointments(ctx, ListOptions{Limit: 50})
	require.True(t, appts.OK())
	require.Len(t, appts.Value, 2)
	assert.Equal(t, "Root Canal", appts.Value[0].ServiceType)
	require.NotNil(t, appts.Value[0].Patient)
	assert.Equal(t, "Ana", appts.Value[0].Patient.Name)
	assert.Nil(t, appts.Value[1].Patient)

	stats := c.Stats(ctx, "")
	require.True(t, stats.OK())
	assert.Equal(t, 10, stats.Value.Calls.Total)
	assert.Equal(t, 3, stats.Value.Appointments.Confirmed)
	assert.Equal(t, 1620.0, stats.Value.Revenue.Estimated)

	// raw lists come back as-is
	clinics := c.Clinics(ctx)
	require.True(t, clinics.OK())
	require.Len(t, clinics.Value, 1)
	assert.Equal(t, "SmileCare", clinics.Value[0].Name)
	assert.JSONEq(t, `["cleaning"]`, string(clinics.Value[0].Services))
}

func TestFetch_CachedWithinTTL(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": []map[string]string{{"id": "call-1", "status": "completed"}}})
	})
	clock := newTestClock()
	mc := cache.NewMemoryCache(cache.WithClock(clock.Now))
	c := newTestClient(t, backend.server.URL, WithCache(mc, 30*time.Second))
	ctx := context.Background()

	first := c.Calls(ctx, ListOptions{ClinicID: "c1", Limit: 20})
	require.True(t, first.OK())
	assert.False(t, first.Cached)
	assert.Equal(t, clock.Now(), first.FetchedAt)

	clock.Add(29 * time.Second)
	second := c.Calls(ctx, ListOptions{Limit: 20, ClinicID: "c1"})
	require.True(t, second.OK())
	assert.True(t, second.Cached)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, first.FetchedAt, second.FetchedAt)

	assert.Equal(t, 1, backend.Hits("/api/dashboard/calls"))
}

func TestFetch_RefetchAfterTTL(t *testing.T) {
	var mu sync.Mutex
	status := "completed"
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		s := status
		mu.Unlock()
		writeJSON(w, map[string]any{"data": []map[string]string{{"id": "call-1", "status": s}}})
	})
	clock := newTestClock()
	mc := cache.NewMemoryCache(cache.WithClock(clock.Now))
	c := newTestClient(t, backend.server.URL, WithCache(mc, 30*time.Second))
	ctx := context.Background()

	c.Calls(ctx, ListOptions{Limit: 20})
	require.Equal(t, 1, backend.Hits("/api/dashboard/calls"))

	mu.Lock()
	status = "escalated"
	mu.Unlock()

	clock.Add(31 * time.Second)
	res := c.Calls(ctx, ListOptions{Limit: 20})
	require.True(t, res.OK())
	assert.False(t, res.Cached)
	assert.Equal(t, "escalated", res.Value[0].Status)
	assert.Equal(t, 2, backend.Hits("/api/dashboard/calls"), "exactly one new call after expiry")

	// and the refreshed entry is served again without a call
	res = c.Calls(ctx, ListOptions{Limit: 20})
	assert.True(t, res.Cached)
	assert.Equal(t, 2, backend.Hits("/api/dashboard/calls"))
	assert.Equal(t, 1, mc.Len())
}

func TestFetch_StaleEntryIsNeverServed(t *testing.T) {
	var mu sync.Mutex
	up := true
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if !up {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, []map[string]string{{"id": "c1", "name": "SmileCare"}})
	})
	clock := newTestClock()
	mc := cache.NewMemoryCache(cache.WithClock(clock.Now))
	c := newTestClient(t, backend.server.URL, WithCache(mc, 30*time.Second))
	ctx := context.Background()

	require.True(t, c.Clinics(ctx).OK())

	mu.Lock()
	up = false
	mu.Unlock()
	clock.Add(time.Minute)

	res := c.Clinics(ctx)
	assert.True(t, res.Fallback)
	assert.Empty(t, res.Value)
}

func TestFetch_KeyedByParams(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"calls": map[string]any{"total": len(r.URL.Query().Get("clinicId"))}}})
	})
	c := newTestClient(t, backend.server.URL)
	ctx := context.Background()

	a := c.Stats(ctx, "a")
	b := c.Stats(ctx, "bbb")
	all := c.Stats(ctx, "")
	again := c.Stats(ctx, "a")

	assert.Equal(t, 1, a.Value.Calls.Total)
	assert.Equal(t, 3, b.Value.Calls.Total)
	assert.Equal(t, 0, all.Value.Calls.Total)
	assert.True(t, again.Cached)
	assert.Equal(t, 3, backend.Hits("/api/dashboard/stats"))
}

func TestFetch_NoCache(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	c := newTestClient(t, backend.server.URL, WithCache(nil, 0))

	assert.True(t, c.Health(context.Background()).Value.Healthy())
	assert.True(t, c.Health(context.Background()).Value.Healthy())
	assert.Equal(t, 2, backend.Hits("/health"))
}

func TestFetch_ConcurrentMissesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, []map[string]string{{"id": "p1", "name": "Ana"}})
	})
	c := newTestClient(t, backend.server.URL)

	const n = 8
	var wg sync.WaitGroup
	results := make([]Result[[]Patient], n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Patients(context.Background())
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, res := range results {
		require.True(t, res.OK())
		require.Len(t, res.Value, 1)
		assert.Equal(t, "Ana", res.Value[0].Name)
	}
	assert.Equal(t, 1, backend.Hits("/patients"))
}

func TestUnwrapData(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
		wantErr  bool
	}{
		{"envelope list", `{"data":[1,2],"pagination":{}}`, `[1,2]`, false},
		{"envelope object", `{"success":true,"data":{"a":1}}`, `{"a":1}`, false},
		{"bare list", `[{"id":"x"}]`, `[{"id":"x"}]`, false},
		{"object without data", `{"status":"ok"}`, `{"status":"ok"}`, false},
		{"not json", `Bad Gateway`, "", true},
		{"empty", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unwrapData([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(got))
		})
	}
}

func TestFetch_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		writeJSON(w, []map[string]string{{"id": "c1", "name": "SmileCare"}})
	})
	mc := cache.NewMemoryCache()
	c := newTestClient(t, backend.server.URL, WithCache(mc, time.Minute))

	gone, cancel := context.WithCancel(context.Background())
	time.AfterFunc(60*time.Millisecond, cancel)
	defer cancel()

	first := make(chan Result[[]Clinic], 1)
	go func() { first <- c.Clinics(gone) }()

	// join the call the first caller started
	time.Sleep(20 * time.Millisecond)
	second := c.Clinics(context.Background())

	require.True(t, second.OK(), "a live caller is not failed by another caller's cancellation")
	require.Len(t, second.Value, 1)
	assert.Equal(t, "SmileCare", second.Value[0].Name)

	res := <-first
	assert.True(t, res.Fallback, "the cancelled caller stops waiting")

	assert.Equal(t, 1, backend.Hits("/clinics"))
	assert.Equal(t, 1, mc.Len(), "the shared result is cached")
	assert.True(t, c.Clinics(context.Background()).Cached)
}

// versionedCache namespaces its keys, so the client must key through it
type versionedCache struct {
	*cache.MemoryCache
}

func (v versionedCache) KeyFor(path string, params map[string]string) string {
	return "v2:" + cache.KeyFor(path, params)
}

func TestFetch_KeysThroughCache(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	mc := cache.NewMemoryCache()
	c := newTestClient(t, backend.server.URL, WithCache(versionedCache{mc}, time.Minute))

	require.True(t, c.Health(context.Background()).OK())

	_, ok := mc.Read("v2:/health", time.Minute)
	assert.True(t, ok)
	_, ok = mc.Read("/health", time.Minute)
	assert.False(t, ok)

	assert.True(t, c.Health(context.Background()).Cached)
	assert.Equal(t, 1, backend.Hits("/health"))
}
