package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/co2sensors/adapter"
	"github.com/mklimuk/co2sensors/cmd/co2/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 bridge maintenance",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the bridge I2C engine status",
	Action: withBridge(func(ctx context.Context, a *adapter.MCP2221) error {
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(console.ExitTransport, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	}),
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck I2C transfer",
	Action: withBridge(func(ctx context.Context, a *adapter.MCP2221) error {
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(console.ExitTransport, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	}),
}

func withBridge(fn func(ctx context.Context, a *adapter.MCP2221) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := commandContext(c)
		a := adapter.NewMCP2221()
		if err := a.Open(ctx); err != nil {
			return console.Exit(console.ExitTransport, "adapter initialization error: %s", console.Red(err))
		}
		defer func() {
			if err := a.Close(); err != nil {
				console.Errorf("error closing adapter: %s", console.Red(err))
			}
		}()
		return fn(ctx, a)
	}
}
