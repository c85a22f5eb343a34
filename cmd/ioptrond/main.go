package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"runtime"
	"syscall"
	"time"

	"github.com/mdouchement/ioptrond"
	showports "github.com/mdouchement/ioptrond/cmd/ioptrond/show_ports"
	"github.com/mdouchement/ioptrond/ioptron"
	"github.com/mdouchement/logger"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cpath string
	dummy bool
)

func main() {
	cmd := &cobra.Command{
		Use:     "ioptrond",
		Short:   "A daemon driving iOptron telescope mounts",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    cobra.NoArgs,
		RunE:    daemon,
	}
	cmd.Flags().StringVarP(&cpath, "config", "c", "/etc/ioptrond/ioptrond.yml", "Configfile path")
	cmd.Flags().BoolVarP(&dummy, "dummy", "", false, "Start ioptrond with a simulated mount")
	cmd.AddCommand(showports.Command())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for ioptrond",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(cmd.Version)
		},
	})

	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func daemon(_ *cobra.Command, args []string) error {
	cfg, err := ioptrond.Load(cpath)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	h := logger.NewSlogTextHandler(os.Stdout, &logger.SlogTextOption{
		Level:            level,
		ForceColors:      true,
		ForceFormatting:  true,
		PrefixRE:         regexp.MustCompile(`^(\[.*?\])\s`),
		DisableTimestamp: true, // Provided by journalctl
	})
	log := logger.WrapSlogHandler(h)
	ctx := logger.WithLogger(context.Background(), log)

	log.Infof("ioptrond version %s", version)

	var trace logger.Logger
	if cfg.Debug {
		trace = log
	}

	dial := cfg.Dialer(trace)
	if dummy {
		sim := ioptron.NewSimulator()
		sim.SetSlewDuration(5 * time.Second)
		if cfg.Debug {
			sim.SetLogger(log)
		}
		dial = func() (ioptron.Link, error) { return sim, nil }
	}

	// The guard is stamped once a refresh completes, half a period keeps every tick.
	opts := []ioptron.Option{ioptron.WithPollInterval(cfg.PollRefresh.Duration / 2)}
	if cfg.Debug {
		opts = append(opts, ioptron.WithLogger(log))
	}

	log.Infof("Connecting %s mount on %s", cfg.Mount.Model, cfg.Endpoint())
	mount, err := ioptron.Connect(dial, cfg.Capability(), opts...)
	if err != nil {
		return fmt.Errorf("ioptron: %w", err)
	}
	defer mount.Close()

	l, err := ioptrond.Listen(cfg.Socket)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = ioptrond.New(cfg, mount, l).Run(ctx); err != nil {
		return err
	}

	log.Info("Gracefully shutdown")
	return nil
}
