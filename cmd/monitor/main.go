/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickdot-custody-go/internal/common"
	"quickdot-custody-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	statusEvery := flag.Duration("status", time.Minute, "Interval between status log lines")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting custody balance monitor")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	mon, err := services.NewMonitor()
	if err != nil {
		zap.L().Fatal("Failed to create monitor", zap.Error(err))
	}
	mon.Start(ctx)

	zap.L().Info("Monitor running",
		zap.Duration("polling_interval", cfg.Monitor.PollingInterval),
		zap.Duration("cleanup_interval", cfg.Monitor.CleanupInterval))
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*statusEvery)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-sigChan:
			break wait
		case <-ticker.C:
			st := mon.Status()
			zap.L().Info("Monitor status",
				zap.Bool("healthy", st.Healthy),
				zap.Uint64("block_number", st.BlockNumber),
				zap.Int("peers", st.Peers),
				zap.Int("refreshed", st.Refreshed),
				zap.Int("failed", st.Failed),
				zap.String("last_error", st.LastError))
		}
	}

	zap.L().Info("Shutdown signal received, stopping monitor...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	go mon.Stop()
	select {
	case <-mon.Done():
		zap.L().Info("Monitor stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
