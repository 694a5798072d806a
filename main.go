package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
	"keeper/internal/config"
	"keeper/internal/domain"
	"keeper/internal/features/auth"
	"keeper/internal/features/maintenance"
	"keeper/internal/platform/forensics"
	keeperhttp "keeper/internal/platform/http"
	"keeper/internal/platform/logging"
	keeperserver "keeper/internal/platform/server"
	"keeper/internal/platform/storage"
	sqlitestore "keeper/internal/platform/storage/sqlite"
)

// main wires dependencies and runs the requested subcommand.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.IsProd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := run(ctx, cmd, args, cfg, logger); err != nil {
		logger.Error("command failed", zap.String("command", cmd), zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, cfg config.Config, logger *zap.Logger) error {
	db, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd {
	case "serve":
		return serve(ctx, cfg, db, logger)
	case "backup":
		dest := ""
		if len(args) > 0 {
			dest = args[0]
		}
		path, err := storage.BackupToZip(ctx, db, dest)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		logger.Info("backup written", zap.String("path", path))
		return nil
	case "bootstrap-admin":
		res, err := auth.BootstrapAdmin(ctx, sqlitestore.NewRepos(db).Users, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		logger.Info("admin created", zap.Int("user_id", res.UserID), zap.String("email", cfg.AdminEmail))
		fmt.Println(res.OTPURL)
		return nil
	case "reconcile":
		if len(args) == 0 {
			return errors.New("usage: keeper reconcile <admin-user-id>")
		}
		adminID, err := strconv.Atoi(args[0])
		if err != nil || adminID <= 0 {
			return fmt.Errorf("invalid admin user id %q", args[0])
		}
		removed, err := maintenance.NewReconciler(sqlitestore.NewRepos(db), logger, nil).Run(ctx, &domain.Identity{Subject: adminID})
		if err != nil {
			return err
		}
		logger.Info("reconcile finished", zap.Int("removed", removed))
		return nil
	}
	return fmt.Errorf("unknown command %q (want serve, backup, bootstrap-admin or reconcile)", cmd)
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db journal_mode: %w", err)
	}
	if err := sqlitestore.InitDB(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init: %w", err)
	}
	return db, nil
}

func serve(ctx context.Context, cfg config.Config, db *sql.DB, logger *zap.Logger) error {
	opts := []keeperserver.Option{keeperserver.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		sink, err := forensics.NewRedisSink(ctx, cfg.RedisAddr,
			forensics.WithPassword(cfg.RedisPassword),
			forensics.WithDB(cfg.RedisDB),
			forensics.WithStream(cfg.ForensicStream),
		)
		if err != nil {
			return fmt.Errorf("forensic sink: %w", err)
		}
		defer sink.Close()
		opts = append(opts, keeperserver.WithForensicSink(sink))
	}

	srv, err := keeperserver.NewServer(cfg, db, opts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           keeperhttp.Routes(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
