package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genroar/pharmacy-client/client"
	apierrors "github.com/genroar/pharmacy-client/internal/errors"
	"github.com/genroar/pharmacy-client/store"
)

func TestProtectedCallWithoutTokenNeverReachesNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.ErrorIs(t, err, apierrors.ErrAuthRequired)
	require.Zero(t, hits.Load())
}

func TestPublicPathsSkipTokenPrecondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})

	_, err := f.client.Do(context.Background(), http.MethodPost, client.PathLogin, map[string]string{"email": "jo@example.com"}, nil)
	require.NoError(t, err)
}

func TestConcurrentIdenticalCallsAreCoalesced(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`{"branches":[{"id":"b1","company_id":"c1","name":"Main","active":true}]}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	type branchList struct {
		Branches []map[string]any `json:"branches"`
	}

	var wg sync.WaitGroup
	results := make([]*branchList, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out branchList
			_, errs[i] = f.client.Do(context.Background(), http.MethodGet, "/api/branches", nil, &out)
			results[i] = &out
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int32(1), hits.Load(), "concurrent identical calls must share one network request")
	require.Equal(t, results[0], results[1])
}

func TestDistinctPathsAreNotCoalesced(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	var wg sync.WaitGroup
	for _, path := range []string{"/api/products?page=1", "/api/products?page=2"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := f.client.Do(context.Background(), http.MethodGet, p, nil, nil)
			require.NoError(t, err)
		}(path)
	}
	wg.Wait()

	require.Equal(t, int32(2), hits.Load(), "distinct query strings are distinct coalescing keys")
}

func TestSamePathDifferentBodiesAreNotCoalesced(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	var wg sync.WaitGroup
	for _, name := range []string{"Aspirin", "Ibuprofen"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			_, err := f.client.Do(context.Background(), http.MethodPost, "/api/products", map[string]string{"name": n}, nil)
			require.NoError(t, err)
		}(name)
	}
	wg.Wait()

	require.Equal(t, int32(2), hits.Load(), "different payloads must not share a network request")
}

func TestFailedCallDoesNotBlockSubsequentAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"boom"}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/sales", nil, nil)
	require.Error(t, err)

	_, err = f.client.Do(context.Background(), http.MethodGet, "/api/sales", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestUnauthorizedClearsSessionAndSignalsOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Session expired"}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.ErrorIs(t, err, apierrors.ErrAuthRequired)

	_, hasToken := f.store.Get(store.KeyToken)
	require.False(t, hasToken, "persisted token must be cleared")
	_, hasUser := f.store.Get(store.KeyUser)
	require.False(t, hasUser, "persisted user must be cleared")
	require.Equal(t, int32(1), f.authEvents.Load(), "exactly one auth-required signal")

	// The next attempt fails the precondition without touching the network
	// and without a second signal.
	_, err = f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.ErrorIs(t, err, apierrors.ErrAuthRequired)
	require.Equal(t, int32(1), f.authEvents.Load())
}

func TestAccountDisabledOn401ReturnsUnthrown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"accountDisabled":true,"message":"Account disabled by admin"}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	res, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.NoError(t, err)
	require.True(t, res.AccountDisabled)
	require.Equal(t, "Account disabled by admin", res.Message)

	_, hasToken := f.store.Get(store.KeyToken)
	require.True(t, hasToken, "session must be untouched")
	require.Zero(t, f.authEvents.Load())
}

func TestAccountDisabledOn403ReturnsUnthrown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"accountDisabled":true,"message":"Account disabled"}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	res, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.NoError(t, err)
	require.True(t, res.AccountDisabled)
	require.Equal(t, true, res.Raw["accountDisabled"])

	_, hasToken := f.store.Get(store.KeyToken)
	require.True(t, hasToken)
}

func TestRateLimitedIsSurfacedNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL},
		client.WithRetryPolicy(client.RetryPolicy{MaxAttempts: 3, Interval: 10 * time.Millisecond}))
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.ErrorIs(t, err, apierrors.ErrRateLimited)
	require.Equal(t, int32(1), hits.Load(), "429 must never be auto-retried")
}

func TestValidationErrorIsStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid product","field":"price","errors":["price must be positive","name is required"]}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodPost, "/api/products", map[string]any{"price": -1}, nil)
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.Equal(t, "invalid product", apiErr.Message)
	require.Equal(t, "price", apiErr.Field)
	require.Equal(t, []string{"price must be positive", "name is required"}, apiErr.Errors)
	require.NotNil(t, apiErr.Raw)
}

func TestNonJSONErrorBodyBecomesGenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "upstream exploded", apiErr.Message)
}

func TestTimeoutAndUnreachableAreDistinguished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil,
		client.WithTimeout(50*time.Millisecond))
	require.ErrorIs(t, err, apierrors.ErrRequestTimeout)

	f2 := setupTestFixture(t, testConfig{baseURL: "http://127.0.0.1:1"})
	f2.login(t)
	_, err = f2.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.ErrorIs(t, err, apierrors.ErrServerUnreachable)
}

func TestScopeHeadersFollowTheProvider(t *testing.T) {
	var mu sync.Mutex
	var gotCompany, gotBranch []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotCompany = append(gotCompany, r.Header.Get("X-Company-ID"))
		gotBranch = append(gotBranch, r.Header.Get("X-Branch-ID"))
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	// No provider registered: headers simply omitted.
	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.NoError(t, err)

	scope := client.Scope{CompanyID: "c1"}
	var scopeMu sync.Mutex
	f.client.SetScopeProvider(func() client.Scope {
		scopeMu.Lock()
		defer scopeMu.Unlock()
		return scope
	})

	_, err = f.client.Do(context.Background(), http.MethodGet, "/api/customers", nil, nil)
	require.NoError(t, err)

	// A scope change is visible on the very next request.
	scopeMu.Lock()
	scope = client.Scope{CompanyID: "c1", BranchID: "b2"}
	scopeMu.Unlock()
	_, err = f.client.Do(context.Background(), http.MethodGet, "/api/sales", nil, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"", "c1", "c1"}, gotCompany)
	require.Equal(t, []string{"", "", "b2"}, gotBranch)
}

func TestBearerAndCallerHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL})
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil,
		client.WithHeader("Content-Type", "application/vnd.custom+json"))
	require.NoError(t, err)
	require.Equal(t, "Bearer test-token", gotAuth)
	require.Equal(t, "application/vnd.custom+json", gotAccept, "caller headers are merged last")
}

func TestTransportRetryPolicyRecovers(t *testing.T) {
	var hits atomic.Int32
	// Connection is refused until the listener starts; simulate with a
	// server that closes the connection on the first attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := setupTestFixture(t, testConfig{baseURL: srv.URL},
		client.WithRetryPolicy(client.RetryPolicy{MaxAttempts: 3, Interval: 10 * time.Millisecond}))
	f.login(t)

	_, err := f.client.Do(context.Background(), http.MethodGet, "/api/products", nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}
