package solve

import (
	"context"
	"flag"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/cpu/acmeshell/acme/challenge"
	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "solve",
			Aliases:  []string{"solveChallenge"},
			Help:     "Complete an ACME challenge",
			LongHelp: `solve [-order=n] [-identifier=name] [-challengeType=type] [-printKeyAuth] [-printToken]`,
			Func:     solveHandler,
		},
		nil)
}

type solveOptions struct {
	printKeyAuthorization bool
	printToken            bool
	orderIndex            int
	identifier            string
	challType             string
}

func solveHandler(c *ishell.Context) {
	opts := solveOptions{}
	solveFlags := flag.NewFlagSet("solve", flag.ContinueOnError)
	solveFlags.BoolVar(&opts.printKeyAuthorization, "printKeyAuth", false, "Print calculated key authorization")
	solveFlags.BoolVar(&opts.printToken, "printToken", false, "Print challenge token")
	solveFlags.StringVar(&opts.challType, "challengeType", "", "Challenge type to solve")
	solveFlags.StringVar(&opts.identifier, "identifier", "", "Authorization identifier to solve for")
	solveFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")

	if _, err := commands.ParseFlagSetArgs(c.Args, solveFlags); err != nil {
		return
	}

	client := commands.GetClient(c)
	challSrv := commands.GetChallSrv(c)
	ctx := context.Background()

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("solve: error getting order URL: %v\n", err)
		return
	}
	authzURL, err := commands.FindAuthzURL(c, orderURL, opts.identifier)
	if err != nil {
		c.Printf("solve: error getting authz URL: %v\n", err)
		return
	}

	authz := &resources.Authorization{ID: authzURL}
	if err := client.RefreshAuthorization(ctx, authz); err != nil {
		c.Printf("solve: error getting authorization object from %q: %v\n", authzURL, err)
		return
	}

	var chall *resources.Challenge
	if opts.challType != "" {
		for i, ch := range authz.Challenges {
			if ch.Type == opts.challType {
				chall = &authz.Challenges[i]
				break
			}
		}
		if chall == nil {
			c.Printf("solve: authz %q has no %q type challenge\n", authz.ID, opts.challType)
			return
		}
	} else {
		var err error
		chall, err = commands.PickChall(c, authz)
		if err != nil {
			c.Printf("solve: error picking challenge: %v\n", err)
			return
		}
	}

	if opts.printToken {
		c.Printf("challenge token:\n%s\n", chall.Token)
	}

	if client.ActiveAccount == nil {
		c.Printf("solve: no active account\n")
		return
	}

	response, err := challenge.Materialize(*chall, authz.Identifier.Value, client.ActiveAccount.Signer)
	if err != nil {
		c.Printf("solve: error materializing challenge response: %v\n", err)
		return
	}

	switch strings.ToUpper(chall.Type) {
	case "HTTP-01":
		if opts.printKeyAuthorization {
			c.Printf("key authorization:\n%s\n", response.HTTP01.Body)
		}
		challSrv.AddHTTPOneChallenge(chall.Token, response.HTTP01.Body)
	case "DNS-01":
		if opts.printKeyAuthorization {
			c.Printf("key authorization (TXT value):\n%s\n", response.DNS01.Value)
		}
		challSrv.AddDNSOneChallenge(response.DNS01.Name, response.DNS01.Value)
	case "TLS-ALPN-01":
		keyAuth, err := keys.KeyAuthorization(client.ActiveAccount.Signer, chall.Token)
		if err != nil {
			c.Printf("solve: error computing key authorization: %v\n", err)
			return
		}
		if opts.printKeyAuthorization {
			c.Printf("key authorization:\n%s\n", keyAuth)
		}
		challSrv.AddTLSALPNChallenge(authz.Identifier.Value, keyAuth)
	default:
		c.Printf("challenge %q has unknown type: %q\n", chall.URL, chall.Type)
		return
	}
	c.Printf("Challenge response ready\n")

	if err := client.AnswerChallenge(ctx, chall); err != nil {
		c.Printf("solve: failed to answer challenge %q: %v\n", chall.URL, err)
		return
	}
	c.Printf("solve: %q challenge for identifier %q (%q) started\n", chall.Type, authz.Identifier.Value, chall.URL)
}
