package revokeCert

import (
	"context"
	"encoding/pem"
	"flag"
	"os"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/cpu/acmeshell/acme/client"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "revokeCert",
			Aliases:  []string{"revokeCertificate", "revoke"},
			Help:     "Revoke a certificate",
			LongHelp: `revokeCert [-order=n] [-certPEM=path] [-keyID=id] [-reason=1]`,
			Func:     revokeCertHandler,
		},
		nil)
}

type revokeOptions struct {
	orderIndex int
	keyID      string
	certPEM    string
	reason     int
}

func revokeCertHandler(c *ishell.Context) {
	opts := revokeOptions{}
	revokeFlags := flag.NewFlagSet("revokeCert", flag.ContinueOnError)
	revokeFlags.IntVar(&opts.orderIndex, "order", -1, "index of order to revoke")
	revokeFlags.StringVar(&opts.keyID, "keyID", "", "Key ID to use for embedded JWK revocation")
	revokeFlags.StringVar(&opts.certPEM, "certPEM", "", "Path to DER or PEM certificate file to revoke")
	// Reason codes are documented in RFC 5280 Section 5.3.1.
	revokeFlags.IntVar(&opts.reason, "reason", 1, "Revocation reason code")

	if _, err := commands.ParseFlagSetArgs(c.Args, revokeFlags); err != nil {
		return
	}

	if opts.certPEM != "" && opts.orderIndex != -1 {
		c.Printf("revokeCert: -certPEM is mutually exclusive with -order\n")
		return
	}

	client := commands.GetClient(c)
	ctx := context.Background()

	var certDER []byte
	if opts.certPEM != "" {
		fileBytes, err := os.ReadFile(opts.certPEM)
		if err != nil {
			c.Printf("revokeCert: error reading -certPEM argument: %v\n", err)
			return
		}
		certDER = pemOrDER(fileBytes)
	} else {
		orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
		if err != nil {
			c.Printf("revokeCert: error getting order URL: %v\n", err)
			return
		}

		order := &resources.Order{ID: orderURL}
		if err := client.RefreshOrder(ctx, order); err != nil {
			c.Printf("revokeCert: error getting order: %s\n", err.Error())
			return
		}

		if order.Status != resources.OrderValid {
			c.Printf("revokeCert: order %q is status %q, not %q\n", order.ID, order.Status, resources.OrderValid)
			return
		}

		downloaded, err := client.DownloadCertificate(ctx, order)
		if err != nil {
			c.Printf("revokeCert: failed to download certificate for order %q: %v\n", order.ID, err)
			return
		}
		if len(downloaded.Chain) == 0 {
			c.Printf("revokeCert: order %q has no certificate\n", order.ID)
			return
		}
		certDER = downloaded.Chain[0].Raw
	}

	revokeOpts := acmeclient.RevokeOptions{Account: client.ActiveAccount}
	if opts.keyID != "" {
		key, found := client.Keys[opts.keyID]
		if !found {
			c.Printf("revokeCert: no key with ID %q exists in shell\n", opts.keyID)
			return
		}
		revokeOpts = acmeclient.RevokeOptions{CertKey: key}
	}

	if err := client.RevokeCertificate(ctx, certDER, &opts.reason, revokeOpts); err != nil {
		c.Printf("revokeCert: failed to revoke certificate: %v\n", err)
		return
	}

	c.Printf("Successfully revoked certificate\n")
}

// pemOrDER returns the DER bytes carried by data: the decoded contents of
// a PEM block if data looks PEM encoded, otherwise data itself.
func pemOrDER(data []byte) []byte {
	if block, _ := pem.Decode(data); block != nil {
		return block.Bytes
	}
	return data
}
