package getAcct

import (
	"context"
	"flag"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/cpu/acmeshell/acme/client"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "getAccount",
			Aliases:  []string{"account", "getAcct", "registration", "getReg", "getRegistration"},
			Func:     getAccountHandler,
			Help:     "Look up the active account's server-side details by key, without creating one",
			LongHelp: `getAccount looks up the ACME account matching the active account's key (RFC 8555 onlyReturnExisting)`,
		},
		nil)
}

func getAccountHandler(c *ishell.Context) {
	getAccountFlags := flag.NewFlagSet("getAccount", flag.ContinueOnError)
	if _, err := commands.ParseFlagSetArgs(c.Args, getAccountFlags); err != nil {
		return
	}

	client := commands.GetClient(c)
	if client.ActiveAccount == nil {
		c.Printf("getAccount: no active account\n")
		return
	}

	acct := &resources.Account{Signer: client.ActiveAccount.Signer}
	err := client.CreateAccount(context.Background(), acct, acmeclient.CreateAccountOptions{
		OnlyReturnExisting: true,
	})
	if err != nil {
		c.Printf("getAccount: %s\n", err)
		return
	}

	acctStr, err := commands.PrintJSON(acct)
	if err != nil {
		c.Printf("getAccount: error serializing account: %v\n", err)
		return
	}
	c.Printf("%s\n", acctStr)
}
