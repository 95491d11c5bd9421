package keys

import (
	"crypto"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/abiosoft/ishell"
	"github.com/cpu/acmeshell/acme/keys"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "viewKey",
			Aliases:  []string{"keys", "viewKeys"},
			Help:     "View available private keys",
			LongHelp: `viewKey [keyID] [-pem] [-jwk] [-b64thumbprint] [-hexthumbprint] [-path=file]`,
			Func:     keysHandler,
		},
		nil)
}

type viewKeyOptions struct {
	pem           bool
	jwk           bool
	hexthumbprint bool
	b64thumbprint bool
	pemPath       string
}

func keysHandler(c *ishell.Context) {
	opts := viewKeyOptions{}
	viewKeyFlags := flag.NewFlagSet("viewKey", flag.ContinueOnError)
	viewKeyFlags.BoolVar(&opts.pem, "pem", false, "Display private key in PEM format")
	viewKeyFlags.BoolVar(&opts.jwk, "jwk", true, "Display public key in JWK format")
	viewKeyFlags.BoolVar(&opts.b64thumbprint, "b64thumbprint", true, "Display JWK public key thumbprint in base64url encoded form")
	viewKeyFlags.BoolVar(&opts.hexthumbprint, "hexthumbprint", false, "Display JWK public key thumbprint in hex encoded form")
	viewKeyFlags.StringVar(&opts.pemPath, "path", "", "Path to write PEM private key to")

	leftovers, err := commands.ParseFlagSetArgs(c.Args, viewKeyFlags)
	if err != nil {
		return
	}

	client := commands.GetClient(c)

	if len(client.Keys) == 0 {
		c.Printf("Client has no keys created\n")
		return
	}

	var key crypto.Signer
	if len(leftovers) == 0 {
		var keysList []string
		for k := range client.Keys {
			keysList = append(keysList, k)
		}
		sort.Strings(keysList)

		choiceList := make([]string, len(keysList))
		for i, keyID := range keysList {
			active := " "
			if keyID == client.ActiveAccountID() {
				active = "*"
			}
			choiceList[i] = fmt.Sprintf("%s%s", active, keyID)
		}

		choice := c.MultiChoice(choiceList, "Which key would you like to view? ")
		key = client.Keys[keysList[choice]]
	} else {
		keyID := leftovers[0]
		k, found := client.Keys[keyID]
		if !found {
			c.Printf("viewKey: no key known to shell with id %q\n", keyID)
			return
		}
		key = k
	}

	pemBytes, err := keys.SignerToPEM(key)
	if err != nil {
		c.Printf("viewKey: failed to PEM encode key: %s\n", err.Error())
		return
	}

	if opts.pem {
		c.Printf("PEM:\n%s\n", pemBytes)
	}

	if opts.pemPath != "" {
		if err := os.WriteFile(opts.pemPath, []byte(pemBytes), os.ModePerm); err != nil {
			c.Printf("viewKey: error writing pem to %q: %s\n", opts.pemPath, err.Error())
			return
		}
		c.Printf("PEM encoded private key saved to %q\n", opts.pemPath)
	}

	if opts.jwk {
		c.Printf("JWK:\n%s\n", keys.JWKJSON(key))
	}

	if opts.hexthumbprint || opts.b64thumbprint {
		thumbBytes, err := keys.ThumbprintBytes(key)
		if err != nil {
			c.Printf("viewKey: failed to compute thumbprint: %s\n", err.Error())
			return
		}
		thumbprint, _ := keys.Thumbprint(key)

		if opts.hexthumbprint {
			c.Printf("Hex Thumbprint:\n%#x\n", thumbBytes)
		}
		if opts.b64thumbprint {
			c.Printf("b64url Thumbprint:\n%s\n", thumbprint)
		}
	}
}
