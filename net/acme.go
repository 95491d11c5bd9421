// Package net provides the HTTP transport used to send and receive ACME
// protocol messages.
package net

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime"
	"strings"
)

const (
	version       = "0.0.1"
	userAgentBase = "acmecore"
	locale        = "en-us"
)

// Transport is the interface the client package uses to send ACME HTTP
// requests. It is context-aware so callers can cancel or time out a request,
// and returns the response status, headers and body rather than a raw
// *http.Response so it can be mocked easily in tests.
type Transport interface {
	Send(ctx context.Context, method, url string, headers http.Header, body []byte) (status int, respHeaders http.Header, respBody []byte, err error)
}

// Config configures an HTTPTransport.
type Config struct {
	// CABundlePath is an optional file path to one or more PEM encoded CA
	// certificates to use as trust roots for HTTPS requests. If empty the
	// default system roots are used.
	CABundlePath string
	// Output controls request/response dumping for debugging.
	Output OutputOptions
}

// OutputOptions holds runtime output settings for an HTTPTransport.
type OutputOptions struct {
	PrintRequests  bool
	PrintResponses bool
}

func (c *Config) normalize() {
	c.CABundlePath = strings.TrimSpace(c.CABundlePath)
}

// HTTPTransport is the default Transport implementation, wrapping an
// *http.Client with ACME-appropriate User-Agent stamping and optional request/
// response dumping.
type HTTPTransport struct {
	httpClient *http.Client
	output     OutputOptions
}

// NewHTTPTransport builds an HTTPTransport from the given Config. If
// CABundlePath is empty the default system trust roots are used.
func NewHTTPTransport(conf Config) (*HTTPTransport, error) {
	conf.normalize()

	client := &http.Client{}
	if conf.CABundlePath != "" {
		pemBundle, err := os.ReadFile(conf.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("net: reading CA bundle: %w", err)
		}
		caBundle := x509.NewCertPool()
		if !caBundle.AppendCertsFromPEM(pemBundle) {
			return nil, fmt.Errorf("net: no certificates found in %q", conf.CABundlePath)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: caBundle},
		}
	}

	return &HTTPTransport{httpClient: client, output: conf.Output}, nil
}

// Send issues a single HTTP request and returns its status, headers and body.
func (t *HTTPTransport) Send(ctx context.Context, method, url string, headers http.Header, body []byte) (int, http.Header, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s %s (%s; %s)",
		userAgentBase, version, runtime.GOOS, runtime.GOARCH))
	req.Header.Set("Accept-Language", locale)

	if t.output.PrintRequests {
		dump, _ := httputil.DumpRequestOut(req, true)
		fmt.Fprintf(os.Stderr, "--> %s\n", dump)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}

	if t.output.PrintResponses {
		dump, _ := httputil.DumpResponse(resp, false)
		fmt.Fprintf(os.Stderr, "<-- %s\n%s\n", dump, respBody)
	}

	return resp.StatusCode, resp.Header, respBody, nil
}

// ParseLinkHeader parses the (possibly repeated) Link header values of an
// HTTP response into a map from "rel" value to every URL registered under
// that rel. http.Header.Get only returns the first value of a repeated
// header, which isn't enough to enumerate e.g. multiple
// Link: <...>; rel="alternate" entries for certificate alternate chains
// (RFC 8555 §7.4.2).
func ParseLinkHeader(headers http.Header) map[string][]string {
	out := map[string][]string{}
	for _, line := range headers.Values("Link") {
		for _, part := range strings.Split(line, ",") {
			url, rel, ok := parseLinkValue(part)
			if !ok {
				continue
			}
			out[rel] = append(out[rel], url)
		}
	}
	return out
}

func parseLinkValue(part string) (url string, rel string, ok bool) {
	part = strings.TrimSpace(part)
	segments := strings.Split(part, ";")
	if len(segments) < 2 {
		return "", "", false
	}
	urlPart := strings.TrimSpace(segments[0])
	if !strings.HasPrefix(urlPart, "<") || !strings.HasSuffix(urlPart, ">") {
		return "", "", false
	}
	url = strings.TrimSuffix(strings.TrimPrefix(urlPart, "<"), ">")

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if !strings.HasPrefix(seg, "rel=") {
			continue
		}
		rel = strings.Trim(strings.TrimPrefix(seg, "rel="), `"`)
		return url, rel, true
	}
	return "", "", false
}
