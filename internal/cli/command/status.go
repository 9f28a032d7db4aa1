package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/internal/cli/connection"
)

type healthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

type statusInfo struct {
	Server      string `json:"server"`
	Version     string `json:"version"`
	Ready       bool   `json:"ready"`
	Initialized bool   `json:"initialized"`
	Admin       string `json:"admin,omitempty"`
	TokenCount  uint64 `json:"token_count"`
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check server health, readiness and registry state",
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	var health healthInfo
	if err := connection.ParseResponse(resp, &health); err != nil {
		return err
	}

	status := statusInfo{Server: client.BaseURL(), Version: health.Version}

	resp, err = client.Get(ctx, "/ready")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		if ParseGlobalFlags(c).Verbose {
			fmt.Fprintf(c.App.ErrWriter, "not ready: %v\n", err)
		}
		return render(c, status)
	}
	status.Ready = true

	resp, err = client.Get(ctx, "/v1/registry")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var info registryInfo
	if err := connection.ParseResponse(resp, &info); err != nil {
		return err
	}
	status.Initialized = info.Initialized
	status.Admin = info.Admin.String()
	status.TokenCount = info.TokenCount

	return render(c, status)
}
