package solve

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"
	"testing"
	"time"

	"github.com/letsencrypt/challtestsrv"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/cpu/acmeshell/acme/challenge"
	"github.com/cpu/acmeshell/acme/resources"
)

// TestDNS01PublishedRecord exercises the same path the `solve` command takes
// for a dns-01 challenge: materialize the response, publish it to an
// embedded challtestsrv instance, then resolve it over the wire exactly like
// an ACME server validating the challenge would.
func TestDNS01PublishedRecord(t *testing.T) {
	dnsAddr := "127.0.0.1:32953"
	srv, err := challtestsrv.New(challtestsrv.Config{
		DNSOneAddrs: []string{dnsAddr},
		Log:         log.Default(),
	})
	require.NoError(t, err)
	go srv.Run()
	defer srv.Shutdown()

	// give the listener a moment to come up.
	time.Sleep(100 * time.Millisecond)

	signer, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	chall := resources.Challenge{Type: "dns-01", Token: "integration-token"}
	resp, err := challenge.Materialize(chall, "example.com", signer)
	require.NoError(t, err)

	srv.AddDNSOneChallenge(resp.DNS01.Name, resp.DNS01.Value)

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(resp.DNS01.Name), dns.TypeTXT)

	client := new(dns.Client)
	in, _, err := client.Exchange(msg, dnsAddr)
	require.NoError(t, err)
	require.NotEmpty(t, in.Answer)

	txt, ok := in.Answer[0].(*dns.TXT)
	require.True(t, ok)
	require.Equal(t, []string{resp.DNS01.Value}, txt.Txt)
}
