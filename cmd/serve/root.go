package serve

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	cmdUtil "github.com/ValentinKolb/dMux/cmd/util"
	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a dMux demo server",
		Long:    `Start a dMux demo server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DMUX_<flag> (e.g. DMUX_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080, /tmp/dmux.sock, ...)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Per-read/per-write deadline on connections in seconds (0 = none)"))

	key = "max-workers"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Maximum number of concurrently running handler invocations per connection"))

	key = "handler"
	ServeCmd.PersistentFlags().String(key, "echo", cmdUtil.WrapString("Demo handler to serve: echo returns the request body unchanged, upper returns it upper-cased"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address for a Prometheus metrics endpoint (e.g. localhost:9090, empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.MaxWorkersPerConn = viper.GetInt("max-workers")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the dMux demo server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// parse the transport
	connector, err := cmdUtil.GetServerConnector()
	if err != nil {
		return err
	}

	// parse the demo handler
	var handler server.IHandler
	switch viper.GetString("handler") {
	case "echo":
		handler = server.HandlerFunc(func(_ context.Context, req []byte) ([]byte, error) {
			return req, nil
		})
	case "upper":
		handler = server.HandlerFunc(func(_ context.Context, req []byte) ([]byte, error) {
			return bytes.ToUpper(req), nil
		})
	default:
		return fmt.Errorf("invalid handler %s (expected one of: echo, upper)", viper.GetString("handler"))
	}

	// optionally expose engine metrics in Prometheus format
	if metricsEndpoint := viper.GetString("metrics-endpoint"); metricsEndpoint != "" {
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
				common.WriteMetrics(w)
			})
			server.Logger.Infof("Starting metrics endpoint on %s", metricsEndpoint)
			server.Logger.Errorf("Metrics endpoint failed: %v", http.ListenAndServe(metricsEndpoint, mux))
		}()
	}

	serv := server.NewServer(
		*serveCmdConfig,
		connector,
		s,
		handler,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dmux")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
