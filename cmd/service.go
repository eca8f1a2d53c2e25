package cmd

import (
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/meridianstays/booking-webhook-app/internal/config"
)

func cmdService() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Info("spawning...")
			rt, hdl, err := buildRuntime(cmd)
			if err != nil {
				return err
			}
			defer hdl.Drain()

			s := &http.Server{
				Handler:      rt.Mux(),
				Addr:         net.JoinHostPort(config.Service.Addr, config.Service.Port),
				WriteTimeout: config.Service.Timeout,
				ReadTimeout:  config.Service.Timeout,
				IdleTimeout:  config.Service.Timeout,
			}

			logger.Info("serving...", "address", s.Addr, "prefix", config.Service.Prefix, "timeout", config.Service.Timeout.String())
			return s.ListenAndServe()
		},
	}

	return cmd
}
