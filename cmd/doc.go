// Package cmd implements the command-line interface of cloudstorage. It opens
// one of the store backends, wraps it in the cloudsync facade and offers typed
// access to single keys.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for typed key-value operations (get, set, del, sync)
//   - watch: Binds a key and prints every change until interrupted
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See cloudstorage -help for a list of all commands.
package cmd
