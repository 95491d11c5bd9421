package net

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLinkHeaderMultiValue(t *testing.T) {
	headers := http.Header{}
	headers.Add("Link", `<https://example.com/acme/cert/1>;rel="alternate"`)
	headers.Add("Link", `<https://example.com/acme/cert/2>;rel="alternate"`)
	headers.Add("Link", `<https://example.com/directory>;rel="index"`)

	links := ParseLinkHeader(headers)
	assert.ElementsMatch(t, []string{
		"https://example.com/acme/cert/1",
		"https://example.com/acme/cert/2",
	}, links["alternate"])
	assert.Equal(t, []string{"https://example.com/directory"}, links["index"])
}

func TestParseLinkHeaderCommaSeparated(t *testing.T) {
	headers := http.Header{}
	headers.Add("Link", `<https://example.com/a>;rel="up", <https://example.com/b>;rel="alternate"`)

	links := ParseLinkHeader(headers)
	assert.Equal(t, []string{"https://example.com/a"}, links["up"])
	assert.Equal(t, []string{"https://example.com/b"}, links["alternate"])
}

func TestParseLinkHeaderMalformed(t *testing.T) {
	headers := http.Header{}
	headers.Add("Link", "garbage")
	assert.Empty(t, ParseLinkHeader(headers))
}
