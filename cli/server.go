package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mobile-next/omniclick/config"
	"github.com/mobile-next/omniclick/daemon"
	"github.com/mobile-next/omniclick/devices"
	"github.com/mobile-next/omniclick/engine"
	"github.com/mobile-next/omniclick/files"
	"github.com/mobile-next/omniclick/server"
	"github.com/mobile-next/omniclick/utils"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the omniclick overlay server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the omniclick server",
	Long:  `Attaches the overlay windows to the configured backend and serves the HUD bridge.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// GetBool cannot fail for defined flags
		if enableCORS, _ := cmd.Flags().GetBool("cors"); enableCORS {
			cfg.Server.CORS = true
		}
		isDaemon, _ := cmd.Flags().GetBool("daemon")

		addr, err := server.NormalizeAddr(cfg.Server.Listen)
		if err != nil {
			return err
		}
		if !utils.IsAddrAvailable(addr) {
			return fmt.Errorf("address %s is already in use", addr)
		}

		if isDaemon && !daemon.IsChild() {
			_, err := daemon.Daemonize()
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", cfg.Server.Listen)
			return nil
		}

		return runServer(cmd.Context(), cfg, loadToken())
	},
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the omniclick server",
	Long:  `Asks the server to close the overlay, which stops the server process.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := daemon.KillServer(cfg.Server.Listen, loadToken()); err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

func newEngine(cfg *config.Config, backend devices.Backend, hud engine.HUD, onClose func()) *engine.Engine {
	metrics := devices.ResolveMetrics(context.Background(), backend, cfg.Display, cfg.DensitySet)

	return engine.New(engine.Options{
		Metrics:           metrics,
		WindowManager:     backend.WindowManager(),
		Synthesizer:       backend.Synthesizer(),
		Picker:            &files.FilePicker{Slots: cfg.Picker},
		Saver:             &files.DirSaver{Dir: cfg.Saver.Dir, DefaultName: cfg.Saver.DefaultName},
		HUD:               hud,
		OnClose:           onClose,
		SettleDelay:       cfg.Timing.SettleDelay,
		FocusDebounce:     cfg.Timing.FocusDebounce,
		GestureTimeout:    cfg.Timing.GestureTimeout,
		TapDuration:       cfg.Timing.TapDuration,
		MinStrokeDuration: cfg.Timing.MinStrokeDuration,
		MinAPILevel:       cfg.Backend.MinAPILevel,
		PassthroughQueue:  cfg.Timing.PassthroughQueue,
	})
}

// runServer blocks until the HUD closes the overlay or the listener fails.
func runServer(ctx context.Context, cfg *config.Config, token string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := devices.FindBackend(ctx, cfg.Backend)
	if err != nil {
		return err
	}
	utils.Info("using backend %s", backend.Name())

	closed := make(chan struct{})
	var closeOnce sync.Once
	onClose := func() { closeOnce.Do(func() { close(closed) }) }

	hub := server.NewHub()
	eng := newEngine(cfg, backend, hub, onClose)
	srv := server.New(eng, hub, server.Options{
		Addr:  cfg.Server.Listen,
		CORS:  cfg.Server.CORS,
		Token: token,
	})

	if err := eng.Start(ctx); err != nil {
		devices.CloseBackends()
		return err
	}

	if ts, ok := backend.(devices.TouchSource); ok {
		err := ts.OnTouch(func(action string, x, y float64) {
			_ = eng.HandleRawTouch(engine.TouchEvent{Action: action, X: x, Y: y})
		})
		if err != nil {
			utils.Warn("raw touches from %s unavailable: %v", backend.Name(), err)
		}
	}

	if shutdownHook != nil {
		shutdownHook.Register("backends", func(ctx context.Context) error {
			devices.CloseBackends()
			return nil
		})
		shutdownHook.Register("engine", func(ctx context.Context) error {
			return eng.Close()
		})
		shutdownHook.Register("server", srv.Shutdown)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		_ = eng.Close()
	case <-closed:
		utils.Info("overlay closed, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}

	devices.CloseBackends()
	return err
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// add server subcommands
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	// server start flags
	serverStartCmd.Flags().String("listen", "", fmt.Sprintf("Address to listen on (default: %s)", config.DefaultListen))
	serverStartCmd.Flags().Bool("cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolP("daemon", "d", false, "Run server in daemon mode (background)")
	serverStartCmd.Flags().String("backend", "", "Platform backend: headless, adb or devicekit")
	serverStartCmd.Flags().String("device", "", "adb device serial (default: first connected)")

	// server kill flags
	serverKillCmd.Flags().String("listen", "", fmt.Sprintf("Address of server to kill (default: %s)", config.DefaultListen))
}
