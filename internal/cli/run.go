package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/k4bek4be/unrealircd/internal/config"
	"github.com/k4bek4be/unrealircd/internal/core"
	"github.com/k4bek4be/unrealircd/internal/extension"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
	"github.com/k4bek4be/unrealircd/internal/operfeed"
	"github.com/k4bek4be/unrealircd/modules/accounttag"
	"github.com/k4bek4be/unrealircd/modules/channeldb"
	"github.com/k4bek4be/unrealircd/modules/msgid"
)

// tickEvery drives the cooperative timer events.
const tickEvery = time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			// The --log-level flag wins over the config file.
			if logLevel == "" && cfg.Logging.Level != "" {
				log = logging.New(nil, cfg.Logging.Level)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			var notifier extension.Notifier
			var hub *operfeed.Hub
			var feedSrv *http.Server
			if cfg.OperFeed.Enabled {
				hub = operfeed.NewHub(log)
				notifier = hub

				mux := http.NewServeMux()
				mux.Handle(cfg.OperFeed.Path, hub)
				feedSrv = &http.Server{Addr: cfg.OperFeed.Listen, Handler: mux}
				go func() {
					log.Info().Str("listen", cfg.OperFeed.Listen).Str("path", cfg.OperFeed.Path).Msg("operator feed listening")
					if err := feedSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Error().Err(err).Msg("operator feed server failed")
					}
				}()
			}

			c := core.New(core.Options{Log: log, Notifier: notifier})

			for _, d := range buildDrivers(c, cfg) {
				if _, err := c.LoadModule(d); err != nil {
					return err
				}
			}
			log.Info().
				Str("server", cfg.ServerName).
				Strs("modules", c.Coordinator.Loaded()).
				Msg("daemon started")

			rehash := make(chan os.Signal, 1)
			signal.Notify(rehash, syscall.SIGHUP)
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(tickEvery)
			defer ticker.Stop()

			for {
				select {
				case now := <-ticker.C:
					c.Events.DoEvents(now)

				case <-rehash:
					log.Info().Msg("SIGHUP received; rehashing")
					next, err := config.Load(cfgFile)
					if err != nil {
						log.Error().Err(err).Msg("rehash aborted: config unreadable")
						continue
					}
					if issues := config.Validate(&next); len(issues) > 0 {
						for _, issue := range issues {
							log.Error().Str("path", issue.Path).Msg(issue.Message)
						}
						log.Error().Msg("rehash aborted: config invalid")
						continue
					}
					if err := c.Rehash(buildDrivers(c, next)); err != nil {
						log.Error().Err(err).Msg("rehash finished with errors")
					}
					cfg = next

				case <-ctx.Done():
					log.Info().Msg("shutting down")
					c.Coordinator.UnloadAll()
					if feedSrv != nil {
						hub.Close()
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						feedSrv.Shutdown(shutdownCtx)
						cancel()
					}
					return nil
				}
			}
		},
	}
}

// buildDrivers instantiates the enabled modules against the given core.
// Called at startup and again on every rehash, so a module dropped from
// the config unloads and one added loads.
func buildDrivers(c *core.Core, cfg config.Config) []module.Driver {
	var drivers []module.Driver
	for _, name := range cfg.Modules.Enabled {
		switch name {
		case "msgid":
			drivers = append(drivers, msgid.New(c))
		case "account-tag":
			drivers = append(drivers, accounttag.New(c))
		case "channeldb":
			drivers = append(drivers, channeldb.New(c, channeldb.Config{
				Database:  cfg.ChannelDB.Database,
				SaveEvery: time.Duration(cfg.ChannelDB.SaveEvery) * time.Second,
			}))
		}
	}
	return drivers
}
