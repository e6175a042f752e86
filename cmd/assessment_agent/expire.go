package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire active sessions that have been idle too long",
	Long:  "Runs one expiry sweep over the configured store, or keeps sweeping on an interval with --watch until interrupted.",
	RunE:  runExpire,
}

var (
	expireIdle     time.Duration
	expireWatch    bool
	expireInterval time.Duration
)

func init() {
	expireCmd.Flags().DurationVar(&expireIdle, "idle", 0, "Idle threshold (default from config)")
	expireCmd.Flags().BoolVar(&expireWatch, "watch", false, "Keep sweeping until interrupted")
	expireCmd.Flags().DurationVar(&expireInterval, "interval", 0, "Sweep interval with --watch (default from config)")
	rootCmd.AddCommand(expireCmd)
}

type expireOutput struct {
	Expired int    `json:"expired"`
	Idle    string `json:"idle"`
}

func runExpire(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	idle := expireIdle
	if idle == 0 {
		idle = rt.cfg.IdleTimeout.Std()
	}
	if idle <= 0 {
		return fmt.Errorf("idle threshold must be positive")
	}

	manager, closeStore, err := rt.newManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	if !expireWatch {
		n, err := manager.ExpireSessions(cmd.Context(), idle)
		if err != nil {
			return err
		}
		return rt.writeJSON(expireOutput{Expired: n, Idle: idle.String()})
	}

	interval := expireInterval
	if interval == 0 {
		interval = rt.cfg.ExpiryInterval.Std()
	}
	if interval <= 0 {
		return fmt.Errorf("expiry interval must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.log.Info("expiry sweeper started", "idle", idle.String(), "interval", interval.String())
	manager.RunExpiry(ctx, interval, idle)
	rt.log.Info("expiry sweeper stopped")
	return nil
}
