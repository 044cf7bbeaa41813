package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/cogniflow/internal/profile"
	"github.com/hrygo/cogniflow/server"
	"github.com/hrygo/cogniflow/server/middleware"
	"github.com/hrygo/cogniflow/store"
	"github.com/hrygo/cogniflow/store/db"
)

var version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "cogniflow",
		Short: `A personal capture assistant that turns free text into tasks, events and notes.`,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				slog.Error("server exited", "error", err)
				os.Exit(1)
			}
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print a signed access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			instanceProfile := loadProfile()
			if instanceProfile.JWTSecret == "" {
				return fmt.Errorf("jwt secret is not configured")
			}
			token, err := middleware.GenerateToken(instanceProfile.JWTSecret, int32(userID), viper.GetDuration("ttl"), time.Now())
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("ttl", 30*24*time.Hour)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("instance-url", "", "the url of your cogniflow instance")
	rootCmd.PersistentFlags().String("jwt-secret", "", "secret used to verify access tokens")
	rootCmd.PersistentFlags().String("timezone", "", "IANA time zone used to read relative times")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "instance-url", "jwt-secret", "timezone"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	if err := viper.BindPFlag("ttl", tokenCmd.Flags().Lookup("ttl")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("cogniflow")
	viper.AutomaticEnv()
	if err := viper.BindEnv("instance-url", "COGNIFLOW_INSTANCE_URL"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("jwt-secret", "COGNIFLOW_JWT_SECRET"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(tokenCmd)
}

func loadProfile() *profile.Profile {
	instanceProfile := &profile.Profile{
		Mode:        viper.GetString("mode"),
		Addr:        viper.GetString("addr"),
		Port:        viper.GetInt("port"),
		Data:        viper.GetString("data"),
		Driver:      viper.GetString("driver"),
		DSN:         viper.GetString("dsn"),
		InstanceURL: viper.GetString("instance-url"),
		JWTSecret:   viper.GetString("jwt-secret"),
		Timezone:    viper.GetString("timezone"),
		Version:     version,
	}
	instanceProfile.FromEnv()
	return instanceProfile
}

func run() error {
	instanceProfile := loadProfile()
	if err := instanceProfile.Validate(); err != nil {
		return err
	}
	if instanceProfile.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required, set --jwt-secret or COGNIFLOW_JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return fmt.Errorf("failed to migrate: %w", err)
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance)
	if err != nil {
		storeInstance.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		s.Shutdown(context.Background())
		return nil
	})
	return g.Wait()
}

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load(".env")

	if level, ok := os.LookupEnv("COGNIFLOW_LOG_LEVEL"); ok {
		var l slog.Level
		if err := l.UnmarshalText([]byte(level)); err == nil {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
