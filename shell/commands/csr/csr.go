package csr

import (
	"context"
	"encoding/base64"
	"encoding/pem"
	"flag"
	"strings"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/cpu/acmeshell/acme/client"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "csr",
			Func:     csrHandler,
			Help:     "Generate a CSR",
			LongHelp: `csr [-cn=name] [-identifiers=a.com,b.com] [-pem] [-b64url] [-order=n]`,
		},
		nil)
}

type csrOptions struct {
	commonName  string
	pem         bool
	b64url      bool
	orderIndex  int
	identifiers string
}

func csrHandler(c *ishell.Context) {
	opts := csrOptions{}
	csrFlags := flag.NewFlagSet("csr", flag.ContinueOnError)
	csrFlags.StringVar(&opts.commonName, "cn", "", "CSR Subject Common Name (CN)")
	csrFlags.BoolVar(&opts.pem, "pem", false, "Output CSR in PEM format")
	csrFlags.BoolVar(&opts.b64url, "b64url", true, "Output CSR in base64 URL encoding")
	csrFlags.IntVar(&opts.orderIndex, "order", -1, "Order index to build the CSR for. Leave blank to pick interactively")
	csrFlags.StringVar(&opts.identifiers, "identifiers", "", "Comma separated list of DNS identifiers (skips order lookup)")

	if _, err := commands.ParseFlagSetArgs(c.Args, csrFlags); err != nil {
		return
	}

	if !opts.pem && !opts.b64url {
		c.Printf("csr: must set either -pem or -b64url output to true\n")
		return
	}

	client := commands.GetClient(c)

	var idents []string
	if opts.identifiers != "" {
		idents = strings.Split(opts.identifiers, ",")
	} else {
		orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
		if err != nil {
			c.Printf("csr: error finding an order: %s\n", err.Error())
			return
		}
		order := &resources.Order{ID: orderURL}
		if err := client.RefreshOrder(context.Background(), order); err != nil {
			c.Printf("csr: error refreshing order %q: %s\n", orderURL, err.Error())
			return
		}
		for _, ident := range order.Identifiers {
			idents = append(idents, ident.Value)
		}
	}

	csrDER, _, err := acmeclient.BuildCSR(idents, acmeclient.CSROptions{CommonName: opts.commonName})
	if err != nil {
		c.Printf("csr: error creating CSR for identifiers %v: %s\n", idents, err.Error())
		return
	}

	if opts.b64url {
		c.Printf("Base64URL: \n%s\n", base64.RawURLEncoding.EncodeToString(csrDER))
	}

	if opts.pem {
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER})
		c.Printf("PEM: \n%s\n", pemBytes)
	}
}
