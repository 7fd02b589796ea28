// file: cmd/serve.go
// version: 1.0.0
// guid: 2351a2a7-7877-4b33-acab-7ce8371d3c64

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jdfalk/album-enricher/internal/enricher"
	"github.com/jdfalk/album-enricher/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serve health, metrics and provider state over HTTP, and accept refresh requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{withClient: true})
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := server.DefaultServerConfig()
		cfg.Host = a.cfg.Server.Host
		cfg.Port = a.cfg.Server.Port
		if d, _ := cmd.Flags().GetDuration("read-timeout"); d > 0 {
			cfg.ReadTimeout = d
		}
		if d, _ := cmd.Flags().GetDuration("write-timeout"); d > 0 {
			cfg.WriteTimeout = d
		}
		if n, _ := cmd.Flags().GetInt("rate-limit"); n > 0 {
			cfg.RequestsPerMinute = n
		}

		srv := server.NewServer(server.Deps{
			Store:    a.store,
			Runner:   a.runner,
			Root:     a.cfg.Library.Root,
			Provider: enricher.ProviderName,
			Logger:   a.logger,
		}, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Start(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port to run the web server on")
	serveCmd.Flags().String("host", "localhost", "host to bind the web server to")
	serveCmd.Flags().Duration("read-timeout", 0, "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().Duration("write-timeout", 0, "write timeout (e.g. 30s, 1m)")
	serveCmd.Flags().Int("rate-limit", 0, "API requests per minute per client IP")
	commandBindings[serveCmd] = map[string]string{
		"server.port": "port",
		"server.host": "host",
	}
}
