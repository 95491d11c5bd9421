package getOrder

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
			Name:     "getOrder",
			Aliases:  []string{"order"},
			Help:     "Get an ACME order",
			LongHelp: `getOrder [-order=n]`,
			Func:     getOrderHandler,
		},
		nil)
}

type getOrderOptions struct {
	orderIndex int
}

func getOrderHandler(c *ishell.Context) {
	opts := getOrderOptions{}
	getOrderFlags := flag.NewFlagSet("getOrder", flag.ContinueOnError)
	getOrderFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")

	if _, err := commands.ParseFlagSetArgs(c.Args, getOrderFlags); err != nil {
		return
	}

	client := commands.GetClient(c)

	targetURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("getOrder: error getting order URL: %v\n", err)
		return
	}
	order := &resources.Order{
		ID: targetURL,
	}
	err = client.RefreshOrder(context.Background(), order)
	if err != nil {
		c.Printf("getOrder: error getting order: %v\n", err)
		return
	}

	orderStr, err := commands.PrintJSON(order)
	if err != nil {
		c.Printf("getOrder: error serializing order: %v\n", err)
		return
	}
	c.Printf("%s\n", orderStr)
}
