package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabtear"
	"pkt.systems/tabtear/httpapi"
	"pkt.systems/tabtear/internal/appconfig"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var traceMessages bool
	var stateFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a headless desktop with the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if stateFile != "" {
				cfg.Desktop.StateFile = stateFile
			}
			if traceMessages {
				cfg.Logging.TraceMessages = true
			}
			server, err := tabtear.New(serverConfig(cfg), tabtear.ServerDeps{}, tabtear.WithHTTP())
			if err != nil {
				return err
			}
			logger.Info("desktop configured", "main_title", cfg.Desktop.MainTitle, "seed_tabs", len(cfg.Desktop.SeedTabs), "tab_width", cfg.Desktop.TabWidth)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "override http.addr")
	cmd.Flags().StringVar(&stateFile, "state", "", "override desktop.state_file")
	cmd.Flags().BoolVar(&traceMessages, "trace-messages", false, "log every inter-window message")
	return cmd
}

func serverConfig(cfg appconfig.Config) tabtear.ServerConfig {
	return tabtear.ServerConfig{
		Desktop: cfg.DesktopSettings(),
		HTTP: httpapi.Config{
			Addr:       cfg.HTTP.Addr,
			BasePath:   cfg.HTTP.BasePath,
			HubHistory: cfg.HTTP.HubHistory,
		},
		StateFile: cfg.Desktop.StateFile,
	}
}
