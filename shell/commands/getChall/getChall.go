package getChall

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
			Name:     "getChall",
			Aliases:  []string{"challenge", "chall"},
			Help:     "Get an ACME challenge",
			LongHelp: `getChall [-order=n] [-identifier=name] [-type=http-01|dns-01|tls-alpn-01]`,
			Func:     getChallHandler,
		},
		nil)
}

type getChallOptions struct {
	orderIndex int
	identifier string
	challType  string
}

func getChallHandler(c *ishell.Context) {
	opts := getChallOptions{}
	getChallFlags := flag.NewFlagSet("getChall", flag.ContinueOnError)
	getChallFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")
	getChallFlags.StringVar(&opts.identifier, "identifier", "", "identifier of authorization")
	getChallFlags.StringVar(&opts.challType, "type", "", "challenge type to get")

	if _, err := commands.ParseFlagSetArgs(c.Args, getChallFlags); err != nil {
		return
	}

	client := commands.GetClient(c)

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("getChall: error getting order URL: %v\n", err)
		return
	}
	authzURL, err := commands.FindAuthzURL(c, orderURL, opts.identifier)
	if err != nil {
		c.Printf("getChall: error getting authz URL: %v\n", err)
		return
	}
	targetURL, err := commands.FindChallengeURL(c, authzURL, opts.challType)
	if err != nil {
		c.Printf("getChall: error getting challenge URL: %v\n", err)
		return
	}

	chall := &resources.Challenge{URL: targetURL}
	if err := client.RefreshChallenge(context.Background(), chall); err != nil {
		c.Printf("getChall: error getting challenge: %s\n", err.Error())
		return
	}
	challStr, err := commands.PrintJSON(chall)
	if err != nil {
		c.Printf("getChall: error serializing challenge: %v\n", err)
		return
	}
	c.Printf("%s\n", challStr)
}
