package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simonvc/grandlivre/internal/scheduler"
	"github.com/simonvc/grandlivre/internal/server"
	"github.com/simonvc/grandlivre/internal/store"
)

var (
	serveAddr        string
	serveNoScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the batch scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		cal, err := cfg.Calendar()
		if err != nil {
			return err
		}
		policy, err := cfg.DepreciationPolicy()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Database.Path, store.WithFiscalCalendar(cal))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()

		srv, err := server.New(st, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		if !serveNoScheduler {
			sched := scheduler.New(scheduler.LogAlerter{},
				scheduler.DepreciationJob(cfg.Scheduler.DepreciationEvery, policy, st),
				scheduler.LettrageJob(cfg.Scheduler.LettrageEvery, cfg.LettrageService(), st),
			)
			g.Go(func() error { return sched.Run(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8888", "Listen address (overrides the config file)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "Do not run depreciation and lettrage in the background")
	rootCmd.AddCommand(serveCmd)
}
