package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dMux/cmd/util"
	"github.com/ValentinKolb/dMux/mux/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	muxClient *client.Client

	// CallCmd sends one or more requests to a running dMux server
	CallCmd = &cobra.Command{
		Use:   "call [payload]...",
		Short: "Send requests to a dMux server",
		Long:  "Send one or more requests to a running dMux server and print the responses. Multiple payloads are sent concurrently over the same connection.",
		Args:  cobra.MinimumNArgs(1),

		PersistentPreRunE: setupClient,
		RunE:              run,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if muxClient != nil {
				_ = muxClient.Close()
			}
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags
	util.SetupClientFlags(CallCmd)
}

// setupClient connects the mux client
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	connector, err := util.GetClientConnector()
	if err != nil {
		return err
	}

	muxClient, err = client.DialClient(connector, s, *config)
	return err
}

// run sends all payloads concurrently and prints the responses in order
func run(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	if timeout := viper.GetInt("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	type result struct {
		resp []byte
		err  error
	}
	results := make([]result, len(args))

	var wg sync.WaitGroup
	for i, payload := range args {
		wg.Add(1)
		go func(i int, payload string) {
			defer wg.Done()
			resp, err := muxClient.Do(ctx, []byte(payload))
			results[i] = result{resp: resp, err: err}
		}(i, payload)
	}
	wg.Wait()

	var firstErr error
	for i, res := range results {
		if res.err != nil {
			fmt.Printf("%s: error: %v\n", args[i], res.err)
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		fmt.Printf("%s\n", res.resp)
	}

	return firstErr
}
