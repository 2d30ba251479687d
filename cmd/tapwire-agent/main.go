package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapwire/agent/internal/adapter"
	"github.com/tapwire/agent/internal/config"
	"github.com/tapwire/agent/internal/dispatch"
	"github.com/tapwire/agent/internal/forward"
	"github.com/tapwire/agent/internal/logging"
	"github.com/tapwire/agent/internal/metrics"
	"github.com/tapwire/agent/internal/motion"
	"github.com/tapwire/agent/internal/source"
	"github.com/tapwire/agent/internal/transform"
	"github.com/tapwire/agent/pkg/input"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tapwire-agent",
	Short: "Tapwire Touch Agent",
	Long:  `Tapwire Touch Agent - adapts native multi-touch input and forwards it to remote peers.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Tapwire Agent %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent",
	Long:  `Start the Tapwire agent and begin processing touch input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return runAgent(cfg)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAgent(cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
		if err := cfg.Save(); err != nil {
			logger.Warn("failed to persist generated device id", zap.Error(err))
		}
	}

	logger.Info("starting tapwire agent",
		zap.String("version", version),
		zap.String("device_id", cfg.DeviceID),
		zap.String("server", cfg.ServerURL))

	viewport, err := transform.NewViewport(
		float64(cfg.DeviceWidth), float64(cfg.DeviceHeight),
		float64(cfg.SurfaceWidth), float64(cfg.SurfaceHeight),
		cfg.Rotation)
	if err != nil {
		return fmt.Errorf("invalid display geometry: %w", err)
	}

	recorder := metrics.NewRecorder()

	// Suppression decisions must be made synchronously, so the forwarder
	// sits behind the async loop while the recorder runs inline.
	var forwarder *forward.Manager
	var offerHandler source.OfferHandler
	branches := []input.Sink{recorder}

	var loop *dispatch.Loop
	if cfg.EnableForward {
		forwarder = forward.NewManager(cfg.ICEServers, logger)
		loop = dispatch.NewLoop(forwarder, cfg.QueueSize, logger)
		offerHandler = forwarder.HandleOffer
		branches = append(branches, loop)
	}

	ad := adapter.New(viewport, dispatch.NewFanout(branches...), logger)

	onMotion := func(ev motion.Event) bool {
		suppressed := ad.HandleMotionEvent(ev)
		recorder.RecordMotion(suppressed)
		return suppressed
	}

	ws := source.NewWSClient(source.WSConfig{
		ServerURL:  cfg.ServerURL,
		AgentID:    cfg.DeviceID,
		AuthToken:  cfg.AuthToken,
		DeviceName: cfg.DeviceName,
		Version:    version,
		SurfaceW:   cfg.SurfaceWidth,
		SurfaceH:   cfg.SurfaceHeight,
	}, onMotion, offerHandler, logger)
	go ws.Start()

	var dropped metrics.DroppedFunc
	if loop != nil {
		dropped = loop.Dropped
	}
	reporter := metrics.NewReporter(recorder, dropped, ad.InvalidIndexDrops, cfg.MetricsInterval, ws.PublishStatus, logger)
	reporter.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnableEvdev {
		ev := source.NewEvdevSource(cfg.EvdevDevice,
			float64(cfg.DeviceWidth), float64(cfg.DeviceHeight),
			onMotion, logger)
		go func() {
			if err := ev.Run(ctx); err != nil {
				logger.Error("evdev source stopped", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	cancel()
	reporter.Stop()
	ws.Stop()
	if loop != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		loop.Shutdown(drainCtx)
		drainCancel()
	}
	if forwarder != nil {
		forwarder.CloseAll()
	}

	logger.Info("agent stopped")
	return nil
}
