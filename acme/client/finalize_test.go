package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmeshell/acme/resources"
	acmenet "github.com/cpu/acmeshell/net"
)

// concurrencyTracker counts requests in flight across all authorization
// fixtures sharing it, so the test can assert that WaitForAuthorizations
// actually overlaps requests instead of polling authorizations one at a time.
type concurrencyTracker struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (ct *concurrencyTracker) enter() {
	ct.mu.Lock()
	ct.inFlight++
	if ct.inFlight > ct.maxInFlight {
		ct.maxInFlight = ct.inFlight
	}
	ct.mu.Unlock()
}

func (ct *concurrencyTracker) leave() {
	ct.mu.Lock()
	ct.inFlight--
	ct.mu.Unlock()
}

// authzFixture tracks how many times an authorization URL has been fetched,
// going valid on the second fetch, so WaitForAuthorizations exercises at
// least one real poll/retry cycle per authorization.
type authzFixture struct {
	mu      sync.Mutex
	tries   int
	tracker *concurrencyTracker
}

func (f *authzFixture) handle(w http.ResponseWriter, r *http.Request) {
	f.tracker.enter()
	defer f.tracker.leave()

	f.mu.Lock()
	f.tries++
	tries := f.tries
	f.mu.Unlock()

	// Hold the request open briefly so concurrent authorizations overlap
	// in-flight instead of the test accidentally serializing them.
	time.Sleep(20 * time.Millisecond)

	status := resources.AuthorizationPending
	if tries >= 2 {
		status = resources.AuthorizationValid
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resources.Authorization{
		Status:     status,
		Identifier: resources.Identifier{Type: "dns", Value: "example.com"},
	})
}

func fastPolicy() backoff.BackOff {
	return backoff.NewConstantBackOff(5 * time.Millisecond)
}

func TestWaitForAuthorizationsConcurrent(t *testing.T) {
	const numAuthz = 4
	tracker := &concurrencyTracker{}
	fixtures := make([]*authzFixture, numAuthz)
	mux := http.NewServeMux()
	for i := 0; i < numAuthz; i++ {
		f := &authzFixture{tracker: tracker}
		fixtures[i] = f
		mux.HandleFunc(fixtureAuthzPath(i), f.handle)
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	transport, err := acmenet.NewHTTPTransport(acmenet.Config{})
	require.NoError(t, err)
	c := &Client{PostAsGet: false, transport: transport}

	order := &resources.Order{}
	for i := 0; i < numAuthz; i++ {
		order.Authorizations = append(order.Authorizations, server.URL+fixtureAuthzPath(i))
	}

	err = c.WaitForAuthorizations(t.Context(), order, fastPolicy)
	require.NoError(t, err)

	for _, f := range fixtures {
		assert.GreaterOrEqual(t, f.tries, 2)
	}
	// If the polls ran one at a time, no fixture would ever observe more
	// than one concurrent request in flight across the whole server.
	assert.Greater(t, tracker.maxInFlight, 1, "expected authorizations to be polled concurrently")
}

func fixtureAuthzPath(i int) string {
	return "/authz/" + string(rune('a'+i))
}

// orderFixture transitions pending -> processing -> valid (with a
// certificate URL) across successive fetches, the same way a real ACME
// server moves an order through RFC 8555 §7.1.6 after finalization.
type orderFixture struct {
	mu          sync.Mutex
	tries       int
	certificate string
}

func (f *orderFixture) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tries++
	tries := f.tries
	f.mu.Unlock()

	var status resources.OrderStatus
	var certificate string
	switch {
	case tries < 2:
		status = resources.OrderPending
	case tries < 3:
		status = resources.OrderProcessing
	default:
		status = resources.OrderValid
		certificate = f.certificate
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resources.Order{
		Status:      status,
		Certificate: certificate,
	})
}

// TestWaitForCertificatePollsUntilTerminal guards against a regression where
// the terminal-check closure passed to pollUntil captured a snapshot of
// *order instead of re-reading it on every iteration: with a bound method
// value like order.Terminal (a value-receiver method), Go copies the
// receiver at the point the value is taken, so it would keep reporting the
// pre-poll status forever even though refresh() is mutating the real order.
func TestWaitForCertificatePollsUntilTerminal(t *testing.T) {
	fixture := &orderFixture{certificate: "https://example.com/cert/1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/order/1", fixture.handle)
	server := httptest.NewServer(mux)
	defer server.Close()

	transport, err := acmenet.NewHTTPTransport(acmenet.Config{})
	require.NoError(t, err)
	c := &Client{PostAsGet: false, transport: transport}

	order := &resources.Order{ID: server.URL + "/order/1"}

	err = c.WaitForCertificate(t.Context(), order, fastPolicy())
	require.NoError(t, err)

	assert.Equal(t, resources.OrderValid, order.Status)
	assert.Equal(t, fixture.certificate, order.Certificate)
	assert.GreaterOrEqual(t, fixture.tries, 3)
}
