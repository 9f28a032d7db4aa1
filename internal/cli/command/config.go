package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/internal/cli/config"
	"github.com/big14way/afri-asset/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI local configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective CLI settings",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "Persist one setting (server, output or key_file)",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
		},
	}
}

type effectiveConfig struct {
	ConfigFile string `json:"config_file"`
	Server     string `json:"server"`
	Output     string `json:"output"`
	KeyFile    string `json:"key_file"`
}

func configShow(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	return render(c, effectiveConfig{
		ConfigFile: c.String("config"),
		Server:     flags.Server,
		Output:     flags.Output,
		KeyFile:    flags.KeyFile,
	})
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)
	if key == "output" {
		if _, err := output.ParseFormat(value); err != nil {
			return err
		}
	}

	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(stdout(c), "Set %s in %s\n", key, path)
	return nil
}
