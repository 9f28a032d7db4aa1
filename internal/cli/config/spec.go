package config

// CLIConfig is the configuration for afriasset-cli.
type CLIConfig struct {
	// Server is the registry base URL.
	Server string `yaml:"server"`
	// Output is the default output format: table, json or yaml.
	Output string `yaml:"output"`
	// KeyFile is the ed25519 seed file used to sign mutating requests.
	KeyFile string `yaml:"key_file"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "http://localhost:5080",
		Output:  "table",
		KeyFile: DefaultKeyFile(),
	}
}
