package deactivateAuthz

import (
	"context"
	"flag"

	"github.com/abiosoft/ishell"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "deactivateAuthz",
			Aliases:  []string{"deactivateAuthorization"},
			Help:     "Deactivate an ACME authorization",
			LongHelp: `deactivateAuthz [-order=n] [-identifier=name]`,
			Func:     deactivateAuthzHandler,
		},
		nil)
}

type deactivateAuthzOptions struct {
	orderIndex int
	identifier string
}

func deactivateAuthzHandler(c *ishell.Context) {
	var opts deactivateAuthzOptions
	deactivateFlags := flag.NewFlagSet("deactivateAuthz", flag.ContinueOnError)
	deactivateFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")
	deactivateFlags.StringVar(&opts.identifier, "identifier", "", "identifier of authorization")

	if _, err := commands.ParseFlagSetArgs(c.Args, deactivateFlags); err != nil {
		return
	}

	client := commands.GetClient(c)

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("deactivateAuthz: error getting order URL: %v\n", err)
		return
	}
	targetURL, err := commands.FindAuthzURL(c, orderURL, opts.identifier)
	if err != nil {
		c.Printf("deactivateAuthz: error getting authz URL: %v\n", err)
		return
	}

	authz := &resources.Authorization{ID: targetURL}
	if err := client.DeactivateAuthorization(context.Background(), authz); err != nil {
		c.Printf("deactivateAuthz: failed to deactivate authz %q: %v\n", targetURL, err)
		return
	}
	c.Printf("Authz %q deactivated\n", targetURL)
}
