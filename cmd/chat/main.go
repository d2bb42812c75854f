package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/story-chat/internal/bridge"
	"github.com/omochice/story-chat/internal/config"
	"github.com/omochice/story-chat/internal/console"
	"github.com/omochice/story-chat/internal/logging"
	"github.com/omochice/story-chat/internal/session"
	"github.com/omochice/story-chat/internal/transport/graphql"
	"github.com/omochice/story-chat/internal/transport/request"
	"github.com/omochice/story-chat/internal/transport/rest"
	"github.com/omochice/story-chat/internal/transport/socket"
	"github.com/omochice/story-chat/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the story backend",
	Long: `Chat with the story backend over Socket.IO, REST or GraphQL.

The backend address is read from API_HOST and the API_*_PORT variables,
either from the environment or from an .env file.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to an .env file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (json, text)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (the full-screen UI only logs to a file)")
	rootCmd.PersistentFlags().Bool("with-caller", false, "Log caller")
	rootCmd.PersistentFlags().Bool("plain", false, "Line mode instead of the full-screen UI")

	rootCmd.AddCommand(
		transportCommand(config.TransportSocket, "Chat over Socket.IO (API_WS_PORT)"),
		transportCommand(config.TransportREST, "Chat over the REST API (API_REST_PORT)"),
		transportCommand(config.TransportGraphQL, "Chat over the GraphQL API (API_GRAPHQL_PORT)"),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func transportCommand(t config.Transport, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(t),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, t)
		},
	}
}

func run(cmd *cobra.Command, t config.Transport) error {
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
	if v, _ := flags.GetString("log-file"); v != "" {
		cfg.Log.File = v
	}
	cfg.Log.WithCaller, _ = flags.GetBool("with-caller")
	plain, _ := flags.GetBool("plain")
	cfg.Log.Quiet = !plain

	if err := logging.Init(cfg.Log); err != nil {
		return err
	}

	addr, err := cfg.Address(t)
	if err != nil {
		return err
	}

	connector, err := newConnector(t, addr, cfg)
	if err != nil {
		return err
	}
	sess := session.New(connector, cfg.Session)
	log.Info().Str("transport", string(t)).Str("address", addr).Str("session", sess.ID()).Msg("Starting chat")

	if plain {
		return runPlain(sess)
	}

	p := tea.NewProgram(tui.New(sess, tui.Options{Title: fmt.Sprintf("Story chat (%s)", t)}), tea.WithAltScreen())
	_, err = p.Run()
	if cerr := sess.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close session")
	}
	return errors.Wrap(err, "chat UI")
}

func runPlain(sess *session.Session) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := console.New(os.Stdout)
	fmt.Println("Type your messages (or 'quit' to exit):")

	err := session.Run(ctx, sess, c, c.ReadActions(ctx, os.Stdin))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newConnector(t config.Transport, addr string, cfg *config.Config) (bridge.Connector, error) {
	switch t {
	case config.TransportSocket:
		return socket.NewConnector(addr), nil
	case config.TransportREST:
		return request.NewConnector("rest", rest.NewClient(addr, cfg.RequestTimeout)), nil
	case config.TransportGraphQL:
		return request.NewConnector("graphql", graphql.NewClient(addr, cfg.RequestTimeout)), nil
	default:
		return nil, errors.Errorf("unknown transport %q", t)
	}
}
