package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"
)

// mockACMEServer is a minimal in-memory ACME server exercising just enough
// of RFC 8555 to drive Client through directory discovery, nonce handling,
// account creation and bad-nonce retry.
type mockACMEServer struct {
	mu          sync.Mutex
	nonces      map[string]bool
	nonceSerial int
	accounts    map[string]*resources.Account
	acctSerial  int
	failNextPOSTWithBadNonce bool
}

func newMockACMEServer() *mockACMEServer {
	return &mockACMEServer{
		nonces:   map[string]bool{},
		accounts: map[string]*resources.Account{},
	}
}

func (m *mockACMEServer) issueNonce(w http.ResponseWriter) {
	m.mu.Lock()
	m.nonceSerial++
	nonce := fmt.Sprintf("nonce-%d", m.nonceSerial)
	m.nonces[nonce] = true
	m.mu.Unlock()
	w.Header().Set("Replay-Nonce", nonce)
}

func (m *mockACMEServer) handler(baseURL string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		dir := map[string]string{
			"newNonce":   baseURL + "/new-nonce",
			"newAccount": baseURL + "/new-account",
			"newOrder":   baseURL + "/new-order",
			"revokeCert": baseURL + "/revoke-cert",
			"keyChange":  baseURL + "/key-change",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dir)
	})

	mux.HandleFunc("/new-nonce", func(w http.ResponseWriter, r *http.Request) {
		m.issueNonce(w)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/new-account", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		shouldFail := m.failNextPOSTWithBadNonce
		m.failNextPOSTWithBadNonce = false
		m.mu.Unlock()

		if shouldFail {
			m.issueNonce(w)
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(resources.Problem{
				Type:   "urn:ietf:params:acme:error:badNonce",
				Detail: "bad nonce",
			})
			return
		}

		m.mu.Lock()
		m.acctSerial++
		id := fmt.Sprintf("%s/acct/%d", baseURL, m.acctSerial)
		acct := &resources.Account{ID: id, Status: resources.AccountValid}
		m.accounts[id] = acct
		m.mu.Unlock()

		m.issueNonce(w)
		w.Header().Set("Location", id)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(acct)
	})

	return mux
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, Config{DirectoryURL: server.URL + "/directory"})
	require.NoError(t, err)
	return c
}

func TestDirectoryFetch(t *testing.T) {
	mock := newMockACMEServer()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.handler(server.URL).ServeHTTP(w, r)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	assert.Equal(t, server.URL+"/new-account", c.Directory().NewAccount)
	assert.Equal(t, server.URL+"/new-order", c.Directory().NewOrder)
}

func TestCreateAccount(t *testing.T) {
	mock := newMockACMEServer()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.handler(server.URL).ServeHTTP(w, r)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	signer, err := keys.NewSigner(keys.ES256)
	require.NoError(t, err)

	acct, err := resources.NewAccount([]string{"admin@example.com"}, signer)
	require.NoError(t, err)

	err = c.CreateAccount(context.Background(), acct, CreateAccountOptions{TermsOfServiceAgreed: true})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, resources.AccountValid, acct.Status)
}

func TestCreateAccountRetriesOnBadNonce(t *testing.T) {
	mock := newMockACMEServer()
	mock.failNextPOSTWithBadNonce = true
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.handler(server.URL).ServeHTTP(w, r)
	}))
	defer server.Close()

	c := newTestClient(t, server)
	signer, err := keys.NewSigner(keys.ES256)
	require.NoError(t, err)
	acct, err := resources.NewAccount(nil, signer)
	require.NoError(t, err)

	err = c.CreateAccount(context.Background(), acct, CreateAccountOptions{TermsOfServiceAgreed: true})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
}

func TestCreateAccountAlreadyHasID(t *testing.T) {
	c := &Client{}
	acct := &resources.Account{ID: "https://example.com/acct/1"}
	err := c.CreateAccount(context.Background(), acct, CreateAccountOptions{})
	require.Error(t, err)
	var stateErr *StateViolation
	assert.ErrorAs(t, err, &stateErr)
}
