package command

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/big14way/afri-asset/internal/cli/config"
	"github.com/big14way/afri-asset/internal/cli/connection"
	"github.com/big14way/afri-asset/internal/cli/output"
	"github.com/big14way/afri-asset/internal/infra/buildinfo"
	"github.com/big14way/afri-asset/pkg/account"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	info := buildinfo.Get()
	return &cli.App{
		Name:    "afriasset-cli",
		Usage:   "Afri-Asset token registry command-line tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			KeysCommand(),
			RegistryCommand(),
			TokenCommand(),
			EventsCommand(),
			StatusCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			c.App.Metadata[metaConfig] = cfg
			_, err = output.ParseFormat(ParseGlobalFlags(c).Output)
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"AFRIASSET_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Registry server URL (e.g., http://localhost:5080)",
			EnvVars: []string{"AFRIASSET_SERVER"},
			Value:   config.Default().Server,
		},
		&cli.StringFlag{
			Name:    "key-file",
			Aliases: []string{"k"},
			Usage:   "ed25519 seed file used to sign mutating requests",
			EnvVars: []string{"AFRIASSET_KEY_FILE"},
			Value:   config.DefaultKeyFile(),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"AFRIASSET_OUTPUT"},
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	KeyFile string

	Output string // table, json, yaml
	Wide   bool

	Timeout time.Duration
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context. Explicit flags and
// environment variables win over the CLI config file, which wins over
// flag defaults.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	cfg := loadedConfig(c)
	pick := func(name, fromFile string) string {
		if c.IsSet(name) || fromFile == "" {
			return c.String(name)
		}
		return fromFile
	}

	return &GlobalFlags{
		Server:  pick("server", cfg.Server),
		KeyFile: pick("key-file", cfg.KeyFile),
		Output:  pick("output", cfg.Output),
		Wide:    c.Bool("wide"),
		Timeout: c.Duration("timeout"),
		Verbose: c.Bool("verbose"),
	}
}

func loadedConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return &config.CLIConfig{}
}

// EnsureConnected returns an unsigned client for read-only commands.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	return connection.NewHTTPClient(flags.Server, connection.WithHTTPClient(httpClient(flags))), nil
}

// EnsureSigner returns a client that signs with the key file, along with
// the key itself.
func EnsureSigner(c *cli.Context) (*connection.HTTPClient, *account.KeyPair, error) {
	flags := ParseGlobalFlags(c)
	kp, err := account.LoadKeyFile(flags.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("signing key %s: %w (run 'afriasset-cli keys generate' or pass --key-file)", flags.KeyFile, err)
	}
	if flags.Verbose {
		fmt.Fprintf(c.App.ErrWriter, "signing as %s\n", kp.Address())
	}

	client := connection.NewHTTPClient(flags.Server,
		connection.WithHTTPClient(httpClient(flags)),
		connection.WithSigner(kp),
	)
	return client, kp, nil
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(stdout(c), data)
}

// isTable reports whether the selected format is the table view.
func isTable(c *cli.Context) bool {
	format, _ := output.ParseFormat(ParseGlobalFlags(c).Output)
	return format == output.FormatTable
}

func stdout(c *cli.Context) io.Writer {
	return c.App.Writer
}

func httpClient(flags *GlobalFlags) *http.Client {
	return &http.Client{Timeout: flags.Timeout}
}
