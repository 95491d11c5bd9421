package getCert

import (
	"context"
	"encoding/pem"
	"flag"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "getCert",
			Aliases:  []string{"cert", "getCertificate", "certificate"},
			Func:     getCertHandler,
			Help:     "Get an order's certificate",
			LongHelp: `getCert [-order=n] [-pem] [-path=file]`,
		},
		nil)
}

type getCertOptions struct {
	printPEM   bool
	pemPath    string
	orderIndex int
}

func getCertHandler(c *ishell.Context) {
	opts := getCertOptions{}
	getCertFlags := flag.NewFlagSet("getCert", flag.ContinueOnError)
	getCertFlags.BoolVar(&opts.printPEM, "pem", true, "print PEM certificate chain output")
	getCertFlags.StringVar(&opts.pemPath, "path", "", "file path to save PEM certificate chain output to")
	getCertFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")

	if _, err := commands.ParseFlagSetArgs(c.Args, getCertFlags); err != nil {
		return
	}

	if !opts.printPEM && opts.pemPath == "" {
		c.Printf("getCert: one of -pem or -path must be provided\n")
		return
	}

	client := commands.GetClient(c)
	ctx := context.Background()

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("getCert: error finding an order: %s\n", err.Error())
		return
	}
	order := &resources.Order{ID: orderURL}
	if err := client.RefreshOrder(ctx, order); err != nil {
		c.Printf("getCert: error getting order: %s\n", err.Error())
		return
	}

	if order.Status != resources.OrderValid {
		c.Printf("getCert: order %q is status %q, not %q\n", order.ID, order.Status, resources.OrderValid)
		return
	}

	downloaded, err := client.DownloadCertificate(ctx, order)
	if err != nil {
		c.Printf("getCert: failed to download certificate for order %q: %s\n", order.ID, err.Error())
		return
	}

	var pemBytes []byte
	for _, cert := range downloaded.Chain {
		pemBytes = append(pemBytes, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})...)
	}

	if opts.printPEM {
		c.Printf("%s", string(pemBytes))
	}

	if opts.pemPath != "" {
		if err := os.WriteFile(opts.pemPath, pemBytes, os.ModePerm); err != nil {
			c.Printf("getCert: error writing pem to %q: %s\n", opts.pemPath, err.Error())
			return
		}
		c.Printf("getCert: cert chain saved to %q\n", opts.pemPath)
	}
}
