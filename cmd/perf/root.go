package perf

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dMux/cmd/util"
	"github.com/ValentinKolb/dMux/mux/client"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	muxClient *client.Client

	// PerfCmd is a load generator for dMux servers
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dMux servers",
		Long:    "Send echo requests to a running dMux server from multiple threads and report throughput and latency percentiles.",
		PreRunE: processPerfConfig,
		RunE:    run,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if muxClient != nil {
				_ = muxClient.Close()
			}
		},
	}

	perfNumThreads    = 10
	perfPayloadSizeKB = 1
	perfDurationSec   = 10
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags
	util.SetupClientFlags(PerfCmd)

	// add flags
	key := "threads"
	PerfCmd.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "payload-size"
	PerfCmd.PersistentFlags().Int(key, 1, util.WrapString("Size of the request payload (in KB)"))
	key = "duration"
	PerfCmd.PersistentFlags().Int(key, 10, util.WrapString("How long to run the benchmark (in seconds)"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfPayloadSizeKB = viper.GetInt("payload-size")
	perfDurationSec = viper.GetInt("duration")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dMux servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Payload: %d KB\n", perfPayloadSizeKB)
	fmt.Printf("Duration: %d sec\n", perfDurationSec)
	fmt.Println()

	// Connect the client
	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	connector, err := util.GetClientConnector()
	if err != nil {
		return err
	}

	muxClient, err = client.DialClient(connector, s, *config)
	if err != nil {
		return err
	}

	// Prepare the payload
	payload := make([]byte, perfPayloadSizeKB*1024)
	if _, err := rand.Read(payload); err != nil {
		return err
	}

	// Per-request latency and error tracking
	registry := gometrics.NewRegistry()
	requests := gometrics.NewRegisteredTimer("requests", registry)
	errors := gometrics.NewRegisteredMeter("errors", registry)

	fmt.Println("starting load...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(perfDurationSec)*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < perfNumThreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				requests.Time(func() {
					if _, err := muxClient.Do(ctx, payload); err != nil && ctx.Err() == nil {
						errors.Mark(1)
					}
				})
			}
		}()
	}
	wg.Wait()

	// Print results
	fmt.Println()
	fmt.Printf("%-16s%d\n", "requests", requests.Count())
	fmt.Printf("%-16s%.0f ops/sec\n", "throughput", requests.RateMean())
	fmt.Printf("%-16s%s\n", "latency mean", time.Duration(requests.Mean()))
	fmt.Printf("%-16s%s\n", "latency p50", time.Duration(requests.Percentile(0.50)))
	fmt.Printf("%-16s%s\n", "latency p95", time.Duration(requests.Percentile(0.95)))
	fmt.Printf("%-16s%s\n", "latency p99", time.Duration(requests.Percentile(0.99)))
	fmt.Printf("%-16s%d\n", "errors", errors.Count())

	return nil
}
