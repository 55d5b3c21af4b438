package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dMux/cmd/call"
	"github.com/ValentinKolb/dMux/cmd/perf"
	"github.com/ValentinKolb/dMux/cmd/serve"
	"github.com/ValentinKolb/dMux/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dmux",
		Short: "multiplexed request/response transport",
		Long: fmt.Sprintf(`dMux (v%s)

A multiplexed request/response transport written in Go. Many concurrent
requests share one connection; responses are correlated by request ID
and may complete out of order.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dMux",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dMux v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.CallCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
