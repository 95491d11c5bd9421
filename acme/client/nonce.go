package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/cpu/acmeshell/acme/resources"
	acmenet "github.com/cpu/acmeshell/net"
)

// replayNonceHeader is the HTTP header ACME servers use to carry a fresh
// anti-replay nonce on every response (RFC 8555 §6.5.1).
const replayNonceHeader = "Replay-Nonce"

// NoncePool is a thread-safe FIFO of single-use anti-replay nonces. It is not
// a process-wide singleton: each Client owns its own pool, so multiple
// Clients (e.g. different accounts in the same process) never share or race
// on nonce state.
//
// Take pops a pooled nonce without blocking if one is available. Otherwise it
// performs the one implicit request this library issues on the caller's
// behalf: an HTTP HEAD to the server's newNonce endpoint.
type NoncePool struct {
	mu     sync.Mutex
	nonces []string

	transport   acmenet.Transport
	newNonceURL func() (string, bool)
}

func newNoncePool(t acmenet.Transport, newNonceURL func() (string, bool)) *NoncePool {
	return &NoncePool{transport: t, newNonceURL: newNonceURL}
}

// Stash adds a nonce to the pool, typically taken from a response's
// Replay-Nonce header.
func (p *NoncePool) Stash(nonce string) {
	if nonce == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonces = append(p.nonces, nonce)
}

// StashFromHeaders stashes the Replay-Nonce header of an HTTP response, if
// present.
func (p *NoncePool) StashFromHeaders(headers http.Header) {
	p.Stash(headers.Get(replayNonceHeader))
}

// Take returns a pooled nonce, fetching one from the server's newNonce
// endpoint if the pool is empty.
func (p *NoncePool) Take(ctx context.Context) (string, error) {
	if nonce, ok := p.pop(); ok {
		return nonce, nil
	}
	return p.fetch(ctx)
}

func (p *NoncePool) pop() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.nonces) == 0 {
		return "", false
	}
	nonce := p.nonces[0]
	p.nonces = p.nonces[1:]
	return nonce, true
}

func (p *NoncePool) fetch(ctx context.Context) (string, error) {
	url, ok := p.newNonceURL()
	if !ok {
		return "", &StateViolation{Resource: "directory", Expected: "newNonce present", Actual: "missing"}
	}

	status, headers, body, err := p.transport.Send(ctx, http.MethodHead, url, nil, nil)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	if status != http.StatusOK {
		return "", &UnexpectedStatus{URL: url, Expected: http.StatusOK, Actual: status}
	}
	_ = body

	nonce := headers.Get(replayNonceHeader)
	if nonce == "" {
		return "", &ProtocolError{URL: url, Problem: &resources.Problem{
			Type:   "urn:ietf:params:acme:error:serverInternal",
			Detail: "newNonce response carried no Replay-Nonce header",
		}}
	}
	return nonce, nil
}
