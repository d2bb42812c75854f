package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/story-chat/internal/backend"
	"github.com/omochice/story-chat/internal/config"
	"github.com/omochice/story-chat/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run a stub story chat backend",
	Long: `Serve the Socket.IO, REST and GraphQL chat endpoints with an echo
responder. Every endpoint is served on each of API_WS_PORT, API_REST_PORT
and API_GRAPHQL_PORT.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	rootCmd.Flags().String("env-file", ".env", "Path to an .env file")
	rootCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "", "Log format (json, text)")
	rootCmd.Flags().String("name", "", "Sender name of the echoed answers")
	rootCmd.Flags().Bool("chunks", false, "Stream answers word by word before the final reply")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	cfg, err := config.Load(envFile, flags.Changed("env-file"))
	if err != nil {
		return err
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := logging.Init(cfg.Log); err != nil {
		return err
	}

	addrs := listenAddresses(cfg)
	if len(addrs) == 0 {
		return errors.Errorf("no port configured: set %s, %s or %s", config.KeyWSPort, config.KeyRESTPort, config.KeyGraphQLPort)
	}

	name, _ := flags.GetString("name")
	opts := []backend.Option{backend.WithResponder(backend.Echo{Name: name})}
	if chunks, _ := flags.GetBool("chunks"); chunks {
		opts = append(opts, backend.WithChunks())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := backend.New(opts...).ListenAndServe(ctx, addrs...); err != nil {
		return err
	}
	log.Info().Msg("Backend stopped")
	return nil
}

// listenAddresses returns one address per distinct configured port.
func listenAddresses(cfg *config.Config) []string {
	var addrs []string
	seen := map[string]bool{}
	for _, port := range []string{cfg.WSPort, cfg.RESTPort, cfg.GraphQLPort} {
		if port == "" || seen[port] {
			continue
		}
		seen[port] = true
		addrs = append(addrs, ":"+port)
	}
	return addrs
}
