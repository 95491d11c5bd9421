package finalize

import (
	"context"
	"encoding/base64"
	"flag"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/cpu/acmeshell/acme/client"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "finalize",
			Aliases:  []string{"finalizeOrder"},
			Func:     finalizeHandler,
			Help:     "Finalize an ACME order with a CSR",
			LongHelp: `finalize [-order=n] [-csr=b64url] [-cn=name]`,
		},
		nil)
}

type finalizeOptions struct {
	csr        string
	commonName string
	orderIndex int
}

func finalizeHandler(c *ishell.Context) {
	opts := finalizeOptions{}
	finalizeFlags := flag.NewFlagSet("finalize", flag.ContinueOnError)
	finalizeFlags.StringVar(&opts.csr, "csr", "", "base64url encoded CSR DER bytes")
	finalizeFlags.StringVar(&opts.commonName, "cn", "", "subject common name (CN) for generated CSR")
	finalizeFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")

	if _, err := commands.ParseFlagSetArgs(c.Args, finalizeFlags); err != nil {
		return
	}

	if opts.csr != "" && opts.commonName != "" {
		c.Printf("finalize: -csr and -cn are mutually exclusive\n")
		return
	}

	client := commands.GetClient(c)
	ctx := context.Background()

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("finalize: error finding an order: %s\n", err.Error())
		return
	}
	order := &resources.Order{ID: orderURL}
	if err := client.RefreshOrder(ctx, order); err != nil {
		c.Printf("finalize: error getting order: %s\n", err.Error())
		return
	}

	var csrDER []byte
	if opts.csr != "" {
		csrDER, err = base64.RawURLEncoding.DecodeString(opts.csr)
		if err != nil {
			c.Printf("finalize: error decoding -csr: %s\n", err.Error())
			return
		}
	} else {
		names := make([]string, len(order.Identifiers))
		for i, ident := range order.Identifiers {
			names[i] = ident.Value
		}
		csrDER, _, err = acmeclient.BuildCSR(names, acmeclient.CSROptions{CommonName: opts.commonName})
		if err != nil {
			c.Printf("finalize: error creating csr: %s\n", err.Error())
			return
		}
	}

	if err := client.FinalizeOrder(ctx, order, csrDER, acmeclient.NewPollBackoff()); err != nil {
		c.Printf("finalize: error finalizing order %q: %s\n", order.ID, err.Error())
		return
	}
	c.Printf("order %q finalized, status %q\n", order.ID, order.Status)
}
