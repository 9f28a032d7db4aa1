package command

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/pkg/account"
)

// KeysCommand returns the keys subcommand group.
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Manage the local signing key",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a new ed25519 key pair and write its seed to the key file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Replace an existing key file",
					},
				},
				Action: keysGenerate,
			},
			{
				Name:   "show",
				Usage:  "Show the account address of the key file",
				Action: keysShow,
			},
		},
	}
}

func keysGenerate(c *cli.Context) error {
	path := ParseGlobalFlags(c).KeyFile

	if _, err := os.Stat(path); err == nil {
		if !c.Bool("force") {
			return fmt.Errorf("key file %s already exists (use --force to replace it)", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove old key file: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("check key file: %w", err)
	}

	kp, err := account.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := account.SaveKeyFile(path, kp); err != nil {
		return err
	}

	return render(c, keyInfo{Address: kp.Address(), KeyFile: path})
}

func keysShow(c *cli.Context) error {
	path := ParseGlobalFlags(c).KeyFile
	kp, err := account.LoadKeyFile(path)
	if err != nil {
		return err
	}
	return render(c, keyInfo{Address: kp.Address(), KeyFile: path})
}
