// Package output renders afriasset-cli results.
//
// Results are printed as an aligned table (the default), indented JSON or
// YAML. Table output is derived from struct json tags; fields tagged
// `table:"wide"` only appear with --wide and `table:"-"` hides a field.
package output
