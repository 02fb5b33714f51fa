package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagemark/config"
	"pagemark/log"
	"pagemark/model"
	"pagemark/server"
	"pagemark/store"
	"pagemark/store/db"
	"pagemark/worker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	greetingBanner = `
██████   █████   ██████  ███████ ███    ███  █████  ██████  ██   ██
██   ██ ██   ██ ██       ██      ████  ████ ██   ██ ██   ██ ██  ██
██████  ███████ ██   ███ █████   ██ ████ ██ ███████ ██████  █████
██      ██   ██ ██    ██ ██      ██  ██  ██ ██   ██ ██   ██ ██  ██
██      ██   ██  ██████  ███████ ██      ██ ██   ██ ██   ██ ██   ██
`
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "pagemark",
		Short: "Pagemark keeps reading progress in sync across devices",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			database, err := db.NewDB()
			if err != nil {
				log.Error("Error connecting to database", zap.Error(err))
				return
			}
			defer database.Close()
			if err := database.Migrate(ctx); err != nil {
				log.Error("Error migrating database", zap.Error(err))
				return
			}

			store := store.NewStore(database.DB)
			if err := store.Ping(); err != nil {
				log.Error("Error pinging database", zap.Error(err))
				return
			}

			syncPool := worker.NewSyncLogPool(store, config.Opts.WorkerPoolSize)
			go schedulePrune(ctx, syncPool)

			httpServer, err := server.StartServer(ctx, store, syncPool)
			if err != nil {
				log.Error("Error starting server", zap.Error(err))
				return
			}
			fmt.Print(greetingBanner)
			log.Info("Server started",
				zap.String("host", config.Opts.Host),
				zap.Int("port", config.Opts.Port),
				zap.String("data", config.Opts.Data),
			)

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c
			log.Info("Shutting down server")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down server", zap.Error(err))
			}
		},
	}
)

// schedulePrune pushes a replication log prune job once a day.
func schedulePrune(ctx context.Context, pool worker.WorkPool) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.Push(model.Job{Type: model.JobTypeSyncLogPrune, Status: model.JobStatusPending})
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file to use")
	rootCmd.PersistentFlags().String("host", "", "host to listen on")
	rootCmd.PersistentFlags().Int("port", 0, "port to listen on")
	rootCmd.PersistentFlags().String("data", "", "data directory")

	cobra.OnInitialize(func() {
		if _, err := config.GetConfig(); err != nil {
			fmt.Println("Error loading config:", err)
			os.Exit(1)
		}
		if configFile != "" {
			if _, err := config.ParseFile(configFile); err != nil {
				fmt.Println("Error parsing config file:", err)
				os.Exit(1)
			}
		}
		if host, _ := rootCmd.PersistentFlags().GetString("host"); host != "" {
			config.Opts.Host = host
		}
		if port, _ := rootCmd.PersistentFlags().GetInt("port"); port != 0 {
			config.Opts.Port = port
		}
		if data, _ := rootCmd.PersistentFlags().GetString("data"); data != "" {
			config.Opts.Data = data
			config.Opts.DSN = data + "/pagemark.db"
		}

		log.Logger = log.NewLogger()
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if log.Logger != nil {
		log.Logger.Sync()
	}
}
