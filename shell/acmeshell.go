// Package shell provides an interactive command shell and the associated
// acmeshell commands.
package shell

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"
	"github.com/letsencrypt/challtestsrv"

	acmeclient "github.com/cpu/acmeshell/acme/client"
	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/acme/resources"
	acmecmd "github.com/cpu/acmeshell/cmd"
	"github.com/cpu/acmeshell/shell/commands"

	_ "github.com/cpu/acmeshell/shell/commands/accounts"
	_ "github.com/cpu/acmeshell/shell/commands/challSrv"
	_ "github.com/cpu/acmeshell/shell/commands/csr"
	_ "github.com/cpu/acmeshell/shell/commands/deactivateAccount"
	_ "github.com/cpu/acmeshell/shell/commands/deactivateAuthz"
	_ "github.com/cpu/acmeshell/shell/commands/finalize"
	_ "github.com/cpu/acmeshell/shell/commands/getAcct"
	_ "github.com/cpu/acmeshell/shell/commands/getAuthz"
	_ "github.com/cpu/acmeshell/shell/commands/getCert"
	_ "github.com/cpu/acmeshell/shell/commands/getChall"
	_ "github.com/cpu/acmeshell/shell/commands/getOrder"
	_ "github.com/cpu/acmeshell/shell/commands/keys"
	_ "github.com/cpu/acmeshell/shell/commands/loadAccount"
	_ "github.com/cpu/acmeshell/shell/commands/loadKey"
	_ "github.com/cpu/acmeshell/shell/commands/newAccount"
	_ "github.com/cpu/acmeshell/shell/commands/newKey"
	_ "github.com/cpu/acmeshell/shell/commands/newOrder"
	_ "github.com/cpu/acmeshell/shell/commands/orders"
	_ "github.com/cpu/acmeshell/shell/commands/poll"
	_ "github.com/cpu/acmeshell/shell/commands/revokeCert"
	_ "github.com/cpu/acmeshell/shell/commands/rollover"
	_ "github.com/cpu/acmeshell/shell/commands/saveAccount"
	_ "github.com/cpu/acmeshell/shell/commands/solve"
	_ "github.com/cpu/acmeshell/shell/commands/switchAccount"
)

// ACMEShellOptions allows specifying options for creating an ACME shell. This
// includes all of the acmeclient.Config options plus the CLI-level account
// bootstrap settings and the listening ports of the embedded challenge
// response server.
type ACMEShellOptions struct {
	acmeclient.Config
	// ContactEmail is used as the mailto: contact for an auto-registered
	// account. Ignored if AccountPath restores an existing account.
	ContactEmail string
	// AccountPath is a JSON filepath to restore an account from, and to save
	// an auto-registered account to.
	AccountPath string
	// AutoRegister creates a new ACME account at startup if AccountPath
	// doesn't already hold one.
	AutoRegister bool
	// HTTPPort is the port the embedded challenge server answers HTTP-01
	// validation requests on.
	HTTPPort int
	// TLSPort is the port the embedded challenge server answers
	// TLS-ALPN-01 validation requests on.
	TLSPort int
	// DNSPort is the port the embedded challenge server answers DNS-01
	// validation requests on.
	DNSPort int
	// PostAsGet switches GET requests to Order/Authorization/Challenge/
	// Certificate resources to POST-as-GET requests (RFC 8555 §6.3).
	PostAsGet bool
}

// ACMEShell is an ishell.Shell instance tailored for ACME. At its core an
// ACMEShell is a github.com/cpu/acmeshell/acme/client.Client instance with an
// associated commands.ChallengeServer instance.
type ACMEShell struct {
	*ishell.Shell
}

// NewACMEShell creates an ACMEShell instance by building an *ishell.Shell
// instance, a commands.ChallengeServer instance, and an *acme/client.Client
// instance. The latter two are stored in the shell instance for access by
// commands.
func NewACMEShell(ctx context.Context, opts *ACMEShellOptions) *ACMEShell {
	shell := ishell.NewWithConfig(&readline.Config{
		Prompt: commands.BasePrompt,
	})

	challSrv, err := challtestsrv.New(challtestsrv.Config{
		HTTPOneAddrs:    []string{fmt.Sprintf(":%d", opts.HTTPPort)},
		TLSALPNOneAddrs: []string{fmt.Sprintf(":%d", opts.TLSPort)},
		DNSOneAddrs:     []string{fmt.Sprintf(":%d", opts.DNSPort)},
		Log:             log.New(os.Stdout, "challRespSrv: ", log.Ldate|log.Ltime),
	})
	acmecmd.FailOnError(err, "Unable to create challenge test server")
	shell.Set(commands.ChallSrvKey, challSrv)

	client, err := acmeclient.New(ctx, opts.Config)
	acmecmd.FailOnError(err, "Unable to create ACME client")
	client.PostAsGet = opts.PostAsGet

	acct, err := loadOrCreateAccount(ctx, client, opts)
	acmecmd.FailOnError(err, "Unable to set up ACME account")
	if acct != nil {
		client.Accounts = append(client.Accounts, acct)
		client.ActiveAccount = acct
		client.Keys[acct.ID] = acct.Signer
	}

	shell.Set(commands.ClientKey, client)
	commands.AddCommands(shell, client)

	return &ACMEShell{Shell: shell}
}

// loadOrCreateAccount restores an account from opts.AccountPath if it
// exists, otherwise creates and saves a new one when opts.AutoRegister is
// set. Returns (nil, nil) if there's no account to make active.
func loadOrCreateAccount(ctx context.Context, client *acmeclient.Client, opts *ACMEShellOptions) (*resources.Account, error) {
	if opts.AccountPath != "" {
		if acct, err := resources.RestoreAccount(opts.AccountPath); err == nil {
			return acct, nil
		}
	}

	if !opts.AutoRegister {
		return nil, nil
	}

	signer, err := keys.NewSigner(keys.ES256)
	if err != nil {
		return nil, fmt.Errorf("generating account key: %w", err)
	}

	acct := &resources.Account{Signer: signer}
	if opts.ContactEmail != "" {
		acct.Contact = []string{"mailto:" + opts.ContactEmail}
	}

	if err := client.CreateAccount(ctx, acct, acmeclient.CreateAccountOptions{TermsOfServiceAgreed: true}); err != nil {
		return nil, fmt.Errorf("auto-registering account: %w", err)
	}

	if opts.AccountPath != "" {
		if err := resources.SaveAccount(opts.AccountPath, acct); err != nil {
			return nil, fmt.Errorf("saving auto-registered account to %q: %w", opts.AccountPath, err)
		}
	}

	return acct, nil
}

// Run starts the ACMEShell, dropping into an interactive session that blocks
// on user input until it is time to exit.
func (shell *ACMEShell) Run() {
	challSrv := commands.GetChallSrv(shell)
	go challSrv.Run()

	shell.Println("Welcome to ACME Shell")
	shell.Shell.Run()
	shell.Println("Goodbye!")
	challSrv.Shutdown()
}
