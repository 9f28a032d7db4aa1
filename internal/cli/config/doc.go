// Package config holds the afriasset-cli local settings file
// (~/.afriasset/cli.yaml by default).
//
// Command-line flags and AFRIASSET_* environment variables take precedence
// over values read from the file.
package config
