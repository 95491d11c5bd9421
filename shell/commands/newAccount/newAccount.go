package newAccount

import (
	"context"
	"flag"
	"strings"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/cpu/acmeshell/acme/client"
	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "newAccount",
			Aliases:  []string{"newAcct", "newReg", "newRegistration"},
			Func:     newAccountHandler,
			Help:     "Create a new ACME account",
			LongHelp: `newAccount -contacts=a@example.com,b@example.com [-switch=true] [-json=path] [-keyID=id]`,
		},
		nil)
}

type newAccountOptions struct {
	contacts string
	switchTo bool
	jsonPath string
	keyID    string
}

func newAccountHandler(c *ishell.Context) {
	opts := newAccountOptions{}
	newAccountFlags := flag.NewFlagSet("newAccount", flag.ContinueOnError)
	newAccountFlags.StringVar(&opts.contacts, "contacts", "", "Comma separated list of contact emails")
	newAccountFlags.BoolVar(&opts.switchTo, "switch", true, "Switch to the new account after creating it")
	newAccountFlags.StringVar(&opts.jsonPath, "json", "", "Optional filepath to a JSON save file for the account")
	newAccountFlags.StringVar(&opts.keyID, "keyID", "", "Key ID for existing key (empty to generate new key)")

	if _, err := commands.ParseFlagSetArgs(c.Args, newAccountFlags); err != nil {
		return
	}

	var emails []string
	for _, e := range strings.Split(opts.contacts, ",") {
		email := strings.TrimSpace(e)
		if email == "" {
			continue
		}
		email = strings.TrimPrefix(email, "mailto:")
		emails = append(emails, email)
	}

	client := commands.GetClient(c)

	var acctKey = client.Keys[opts.keyID]
	if opts.keyID != "" && acctKey == nil {
		c.Printf("newAccount: Key ID %q does not exist in shell\n", opts.keyID)
		return
	}
	if acctKey == nil {
		generated, err := keys.NewSigner(keys.ES256)
		if err != nil {
			c.Printf("newAccount: error generating account key: %s\n", err)
			return
		}
		acctKey = generated
	}

	acct, err := resources.NewAccount(emails, acctKey)
	if err != nil {
		c.Printf("newAccount: error creating new account object: %s\n", err)
		return
	}

	err = client.CreateAccount(context.Background(), acct, acmeclient.CreateAccountOptions{
		TermsOfServiceAgreed: true,
	})
	if err != nil {
		c.Printf("newAccount: error creating new account with ACME server: %s\n", err)
		return
	}

	client.Keys[acct.ID] = acct.Signer
	c.Printf("Created account with ID %q Contacts %q\n", acct.ID, acct.Contact)
	client.Accounts = append(client.Accounts, acct)

	if opts.jsonPath != "" {
		if err := resources.SaveAccount(opts.jsonPath, acct); err != nil {
			c.Printf("error saving account to %q : %s\n", opts.jsonPath, err)
		} else {
			c.Printf("Saved account data to %q\n", opts.jsonPath)
		}
	}

	if opts.switchTo {
		client.ActiveAccount = acct
		c.Printf("Active account is now %q\n", client.ActiveAccount.ID)
	}
}
