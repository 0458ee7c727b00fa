package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kitsunedns/cache"
	"kitsunedns/config"
	"kitsunedns/resolver"
	"kitsunedns/server"
	"kitsunedns/stats"
	"kitsunedns/web"
)

func getCmdServe(c *rootCommand) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DNS server",
		Long:  "Start the resolving DNS server and, unless disabled, the web dashboard.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Consolidate(c.fs, c.configFilePath, getServeConfig(cmd.Flags()))
			if err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				return err
			}
			return c.serve(conf)
		},
	}
	serveCmd.Flags().AddFlagSet(serveConfigFlagSet())
	return serveCmd
}

// serve runs the DNS server and dashboard until an interrupt arrives.
func (c *rootCommand) serve(conf config.Config) error {
	statsCollector := stats.NewStats()
	cacheStore := cache.New()
	res := resolver.New(conf.RootServer.String, c.logger)

	dnsServer := server.NewServer(int(conf.Port.Int64), c.logger, statsCollector, cacheStore, res)
	if err := dnsServer.Start(); err != nil {
		return err
	}

	var webServer *web.Server
	webErr := make(chan error, 1)
	if conf.WebEnabled.Bool {
		webServer = web.NewServer(int(conf.WebPort.Int64), c.logger, statsCollector, cacheStore, c.fs)
		go func() {
			webErr <- webServer.Start()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		c.logger.Infof("Received %s, shutting down...", sig)
	case err := <-webErr:
		dnsServer.Stop()
		return err
	}

	if webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := webServer.Stop(ctx); err != nil {
			c.logger.Errorf("Error stopping web server: %v", err)
		}
	}
	dnsServer.Stop()

	return nil
}
