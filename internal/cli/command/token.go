package command

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/internal/cli/connection"
	"github.com/big14way/afri-asset/internal/core/domain"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Aliases: []string{"tk"},
		Usage:   "Token lifecycle commands",
		Subcommands: []*cli.Command{
			{
				Name:  "mint",
				Usage: "Mint a token (signed by the administrator)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Owner account", Required: true},
					&cli.StringFlag{Name: "ipfs-hash", Usage: "IPFS hash of the asset metadata"},
					&cli.StringFlag{Name: "yield", Usage: "Yield amount (decimal)", Value: "0"},
				},
				Action: tokenMint,
			},
			{
				Name:      "get",
				Usage:     "Show a token",
				ArgsUsage: "TOKEN_ID",
				Action:    tokenGet,
			},
			{
				Name:  "list",
				Usage: "List tokens",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Filter by owner account"},
					&cli.StringFlag{Name: "active", Usage: "Filter by status: true or false"},
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "page-size", Usage: "Items per page", Value: 20},
				},
				Action: tokenList,
			},
			{
				Name:      "transfer",
				Usage:     "Transfer a token (signed by the current owner)",
				ArgsUsage: "TOKEN_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Usage: "Recipient account", Required: true},
				},
				Action: tokenTransfer,
			},
			{
				Name:      "trade",
				Usage:     "Buy a token against declared escrow (signed by the buyer)",
				ArgsUsage: "TOKEN_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "escrow", Usage: "Escrow amount (decimal)", Required: true},
					&cli.StringFlag{Name: "buyer", Usage: "Buyer account (defaults to the signing key's address)"},
				},
				Action: tokenTrade,
			},
			{
				Name:      "burn",
				Usage:     "Deactivate a token (signed by the current owner)",
				ArgsUsage: "TOKEN_ID",
				Action:    tokenBurn,
			},
			{
				Name:      "escrow",
				Usage:     "Show the escrow recorded for a token",
				ArgsUsage: "TOKEN_ID",
				Action:    tokenEscrow,
			},
		},
	}
}

// tokenArg parses the TOKEN_ID argument.
func tokenArg(c *cli.Context) (domain.TokenID, error) {
	raw := c.Args().First()
	if raw == "" {
		return 0, fmt.Errorf("token ID required")
	}
	id, err := domain.ParseTokenID(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid token ID %q", raw)
	}
	return id, nil
}

func amountFlag(c *cli.Context, name string) (domain.Amount, error) {
	v, err := domain.ParseAmount(c.String(name))
	if err != nil {
		return domain.Amount{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return v, nil
}

func tokenMint(c *cli.Context) error {
	yield, err := amountFlag(c, "yield")
	if err != nil {
		return err
	}
	client, _, err := EnsureSigner(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/tokens", mintRequest{
		IPFSHash:  c.String("ipfs-hash"),
		Owner:     domain.Principal(c.String("owner")),
		YieldData: yield,
	})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result mintResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if isTable(c) {
		fmt.Fprintf(stdout(c), "Minted token %s\n", result.TokenID)
		return nil
	}
	return render(c, result)
}

func tokenGet(c *cli.Context) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/tokens/"+id.String())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var token domain.Token
	if err := connection.ParseResponse(resp, &token); err != nil {
		return err
	}
	return render(c, &token)
}

func tokenList(c *cli.Context) error {
	query := url.Values{}
	if owner := c.String("owner"); owner != "" {
		query.Set("owner", owner)
	}
	if active := c.String("active"); active != "" {
		if _, err := strconv.ParseBool(active); err != nil {
			return fmt.Errorf("invalid --active %q (want true or false)", active)
		}
		query.Set("active", active)
	}
	query.Set("page", strconv.Itoa(c.Int("page")))
	query.Set("page_size", strconv.Itoa(c.Int("page-size")))

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/tokens?"+query.Encode())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var page tokenPage
	if err := connection.ParseResponse(resp, &page); err != nil {
		return err
	}

	if !isTable(c) {
		return render(c, page)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(stdout(c), "No tokens found.")
		return nil
	}
	if err := render(c, page.Items); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "\nPage %d, %d of %d token(s)\n", page.Page, len(page.Items), page.Total)
	return nil
}

func tokenTransfer(c *cli.Context) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	return tokenMutation(c, id, "transfer", func(domain.Principal) any {
		return map[string]string{"to": c.String("to")}
	})
}

func tokenTrade(c *cli.Context) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	escrow, err := amountFlag(c, "escrow")
	if err != nil {
		return err
	}
	return tokenMutation(c, id, "trade", func(buyer domain.Principal) any {
		if b := c.String("buyer"); b != "" {
			buyer = domain.Principal(b)
		}
		return struct {
			Buyer  domain.Principal `json:"buyer"`
			Escrow domain.Amount    `json:"escrow"`
		}{buyer, escrow}
	})
}

func tokenBurn(c *cli.Context) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	return tokenMutation(c, id, "burn", nil)
}

// tokenMutation posts a signed action on one token and prints the updated
// token. body builds the request body from the signing account; nil sends
// none.
func tokenMutation(c *cli.Context, id domain.TokenID, action string, body func(signer domain.Principal) any) error {
	client, kp, err := EnsureSigner(c)
	if err != nil {
		return err
	}
	var payload any
	if body != nil {
		payload = body(domain.Principal(kp.Address()))
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/tokens/"+id.String()+"/"+action, payload)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var token domain.Token
	if err := connection.ParseResponse(resp, &token); err != nil {
		return err
	}
	return render(c, &token)
}

func tokenEscrow(c *cli.Context) error {
	id, err := tokenArg(c)
	if err != nil {
		return err
	}
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/tokens/"+id.String()+"/escrow")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var info escrowInfo
	if err := connection.ParseResponse(resp, &info); err != nil {
		return err
	}

	if isTable(c) && info.Escrow == nil {
		fmt.Fprintf(stdout(c), "No escrow recorded for token %s\n", info.TokenID)
		return nil
	}
	return render(c, info)
}
