package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/internal/cli/connection"
	"github.com/big14way/afri-asset/internal/core/domain"
)

// RegistryCommand returns the registry subcommand group.
func RegistryCommand() *cli.Command {
	return &cli.Command{
		Name:    "registry",
		Aliases: []string{"reg"},
		Usage:   "Registry administration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize the registry with its administrator",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "admin",
						Usage: "Administrator account (defaults to the signing key's address)",
					},
				},
				Action: registryInit,
			},
			{
				Name:   "show",
				Usage:  "Show the administrator and token count",
				Action: registryShow,
			},
		},
	}
}

func registryInit(c *cli.Context) error {
	client, kp, err := EnsureSigner(c)
	if err != nil {
		return err
	}

	admin := domain.Principal(c.String("admin"))
	if admin.IsZero() {
		admin = domain.Principal(kp.Address())
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/registry/initialize", map[string]domain.Principal{"admin": admin})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var info registryInfo
	if err := connection.ParseResponse(resp, &info); err != nil {
		return err
	}
	return render(c, info)
}

func registryShow(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/registry")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var info registryInfo
	if err := connection.ParseResponse(resp, &info); err != nil {
		return err
	}
	return render(c, info)
}
