package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/chatbubbles/internal/cache"
	"github.com/chatbubbles/internal/config"
	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/handler"
	"github.com/chatbubbles/internal/logging"
	"github.com/chatbubbles/internal/platform"
	"github.com/chatbubbles/internal/router"
	"github.com/chatbubbles/internal/view"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app 汇总子命令共享的配置、日志与数据库
type app struct {
	cfg    config.AppConfig
	logger *zap.Logger
	db     *gorm.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "chatbubbles",
		Short:         "Chat bubble contact widget service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.db != nil {
				if sqlDB, err := a.db.DB(); err == nil {
					sqlDB.Close()
				}
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newCreateAdminCmd(a),
		newPlatformsCmd(),
		newImportLegacyCmd(a),
	)
	return root
}

func (a *app) openDB() error {
	gdb, err := db.Open(a.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = gdb
	return nil
}

func (a *app) newAPI(ctx context.Context) (*handler.API, func(), error) {
	store, closer, err := buildCacheStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, nil, err
	}

	opts := handler.Options{
		UploadDir:    a.cfg.UploadDir,
		UploadURL:    a.cfg.UploadURLPath,
		Assets:       view.NewAssets(a.cfg.AssetBaseURL),
		Counter:      store,
		CacheTTL:     a.cfg.CacheTTL,
		LabelMin:     a.cfg.LabelMinLength,
		LabelMax:     a.cfg.LabelMaxLength,
		ReorderLimit: a.cfg.ReorderLimit,
		RateLimit:    a.cfg.RateLimitRequests,
		RateWindow:   a.cfg.RateLimitWindow,
		Logger:       a.logger,
	}
	if a.cfg.CacheBackend != config.CacheBackendNone {
		opts.Cache = store
	}
	return handler.NewAPI(a.db, opts), closer, nil
}

// buildCacheStore 按配置选择缓存后端；none 时仍返回内存计数器供限流使用
func buildCacheStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (cache.Store, func(), error) {
	if cfg.CacheBackend != config.CacheBackendRedis {
		return cache.NewMemoryStore(), func() {}, nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("redis cache connected", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("close redis failed", zap.Error(err))
		}
	}, nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(a.cfg.GinMode)

			if err := a.openDB(); err != nil {
				return err
			}
			created, err := db.EnsureUser(a.db, a.cfg.SuperRootUserName, a.cfg.SuperRootPassword)
			if err != nil {
				return fmt.Errorf("ensure admin user: %w", err)
			}
			if created {
				a.logger.Info("admin user created", zap.String("username", a.cfg.SuperRootUserName))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, closeCache, err := a.newAPI(ctx)
			if err != nil {
				return err
			}
			defer closeCache()

			engine := router.SetupRouter(api, router.Config{
				SessionSecret: a.cfg.SessionSecret,
				UploadDir:     a.cfg.UploadDir,
				UploadURL:     a.cfg.UploadURLPath,
				AssetDir:      a.cfg.AssetDir,
				AssetURL:      a.cfg.AssetBaseURL,
				Logger:        a.logger,
			})

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", zap.String("addr", a.cfg.ListenAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("run server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openDB(); err != nil {
				return err
			}
			a.logger.Info("database migrated", zap.String("path", a.cfg.DatabasePath))
			fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
			return nil
		},
	}
}

func newCreateAdminCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			if err := a.openDB(); err != nil {
				return err
			}
			created, err := db.EnsureUser(a.db, username, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", username)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported messaging platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tLABEL\tFIELD\tCOLOR\tPATTERN")
			for _, def := range platform.NewRegistry().List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", def.Key, def.Label, def.ContactField, def.BrandColor, def.Pattern)
			}
			return w.Flush()
		},
	}
}

func newImportLegacyCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import items from a legacy options JSON export",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read legacy options: %w", err)
			}
			if err := a.openDB(); err != nil {
				return err
			}

			api, closeCache, err := a.newAPI(cmd.Context())
			if err != nil {
				return err
			}
			defer closeCache()

			result, err := api.Legacy().Import(cmd.Context(), raw)
			if err != nil {
				return err
			}
			a.logger.Info("legacy options imported",
				zap.Int("imported", result.Imported),
				zap.Strings("skipped", result.Skipped),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d item(s), skipped %d\n", result.Imported, len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the legacy options JSON")
	return cmd
}
