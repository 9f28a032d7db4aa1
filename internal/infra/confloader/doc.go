// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already set on the target struct
//  2. A YAML file
//  3. AFRIASSET_-prefixed environment variables
//  4. Explicit overrides (LoadMap), used for command-line flags and tests
//
// Watcher reports changes to the config file so a running server can
// re-apply the settings that are safe to change live.
package confloader
