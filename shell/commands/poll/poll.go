package poll

import (
	"context"
	"flag"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/cpu/acmeshell/acme/resources"
	"github.com/cpu/acmeshell/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "poll",
			Help:     "Poll an order or authz until it has the desired status field value",
			LongHelp: `poll [-order=n] [-identifier=name] [-status=ready] [-maxTries=5] [-sleep=5] [-all]`,
			Func:     pollHandler,
		},
		nil)
}

type pollOptions struct {
	maxTries     int
	sleepSeconds int
	status       string
	orderIndex   int
	identifier   string
	all          bool
}

func pollHandler(c *ishell.Context) {
	opts := pollOptions{}
	pollFlags := flag.NewFlagSet("poll", flag.ContinueOnError)
	pollFlags.StringVar(&opts.status, "status", "ready", "Poll object until it is the given status")
	pollFlags.IntVar(&opts.maxTries, "maxTries", 5, "Number of times to poll before giving up")
	pollFlags.IntVar(&opts.sleepSeconds, "sleep", 5, "Number of seconds to sleep between poll attempts")
	pollFlags.IntVar(&opts.orderIndex, "order", -1, "index of order to poll")
	pollFlags.StringVar(&opts.identifier, "identifier", "", "identifier of authorization")
	pollFlags.BoolVar(&opts.all, "all", false, "Poll every authorization on the order concurrently until each reaches a terminal status")

	if _, err := commands.ParseFlagSetArgs(c.Args, pollFlags); err != nil {
		return
	}

	client := commands.GetClient(c)
	ctx := context.Background()

	orderURL, err := commands.FindOrderURL(c, opts.orderIndex)
	if err != nil {
		c.Printf("poll: error finding an order: %s\n", err.Error())
		return
	}
	order := &resources.Order{ID: orderURL}
	if err := client.RefreshOrder(ctx, order); err != nil {
		c.Printf("poll: error getting order: %s\n", err.Error())
		return
	}

	if opts.all {
		if err := client.WaitForAuthorizations(ctx, order, nil); err != nil {
			c.Printf("poll: error waiting for authorizations: %v\n", err)
			return
		}
		c.Printf("poll: all %d authorizations reached a terminal status\n", len(order.Authorizations))
		return
	}

	var status string
	refresh := func() error {
		if opts.identifier == "" {
			if err := client.RefreshOrder(ctx, order); err != nil {
				return err
			}
			status = string(order.Status)
			return nil
		}
		authz, err := client.AuthorizationByIdentifier(ctx, order, opts.identifier)
		if err != nil {
			return err
		}
		status = string(authz.Status)
		return nil
	}

	if err := refresh(); err != nil {
		c.Printf("poll: error polling: %v\n", err)
		return
	}

	for try := 0; status != opts.status && try < opts.maxTries; try++ {
		c.Printf("poll: try %d. status is %q\n", try, status)
		time.Sleep(time.Duration(opts.sleepSeconds) * time.Second)
		if err := refresh(); err != nil {
			c.Printf("poll: error polling: %v\n", err)
			return
		}
	}

	if status == opts.status {
		c.Printf("poll: polling done. status is %q\n", status)
	} else {
		c.Printf("poll: polling failed. reached %d tries. status is %q\n", opts.maxTries, status)
	}
}
