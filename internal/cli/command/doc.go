// Package command defines the afriasset-cli commands using urfave/cli/v2.
//
// Each command follows the same pattern: parse flags, call the registry
// API through the signing HTTP client and format the result.
package command
