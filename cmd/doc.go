// Package cmd implements the command-line interface for the dMux request
// multiplexer. It provides a hierarchical command structure with operations
// for running a demo server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a dMux demo server
//   - call: Commands for sending requests to a running server
//   - perf: Performance testing tool for dMux servers
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dmux -help for a list of all commands.
package cmd
