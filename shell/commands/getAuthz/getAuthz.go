package getauthz

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
			Name:     "getAuthz",
			Aliases:  []string{"authz", "authorization"},
			Help:     "Get an ACME authorization",
			LongHelp: `getAuthz [-order=n] [-identifier=name]`,
			Func:     getAuthzHandler,
		},
		nil)
}

type getAuthzOptions struct {
	orderIndex int
	identifier string
}

func getAuthzHandler(c *ishell.Context) {
	opts := getAuthzOptions{}
	getAuthzFlags := flag.NewFlagSet("getAuthz", flag.ContinueOnError)
	getAuthzFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")
	getAuthzFlags.StringVar(&opts.identifier, "identifier", "", "identifier of authorization")

	if _, err := commands.ParseFlagSetArgs(c.Args, getAuthzFlags); err != nil {
		return
	}

	client := commands.GetClient(c)

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("getAuthz: error getting order URL: %v\n", err)
		return
	}
	targetURL, err := commands.FindAuthzURL(c, orderURL, opts.identifier)
	if err != nil {
		c.Printf("getAuthz: error getting authz URL: %v\n", err)
		return
	}

	authz := &resources.Authorization{
		ID: targetURL,
	}
	if err := client.RefreshAuthorization(context.Background(), authz); err != nil {
		c.Printf("getAuthz: error getting authz: %s\n", err.Error())
		return
	}

	authzStr, err := commands.PrintJSON(authz)
	if err != nil {
		c.Printf("getAuthz: error serializing authz: %v\n", err)
		return
	}
	c.Printf("%s\n", authzStr)
}
