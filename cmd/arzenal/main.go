package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/api"
	"github.com/erazemk/arzenal/internal/auth"
	"github.com/erazemk/arzenal/internal/config"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

func main() {
	fs := flag.NewFlagSet("arzenal", flag.ContinueOnError)

	var configPath, dbPath, addr, adminUser, logPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")
	fs.StringVar(&adminUser, "user", "", "")
	fs.StringVar(&adminUser, "u", "", "")
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: arzenal [flags]

Flags:
  -c, -config <path>      YAML config file (default: none)
  -d, -db <path>          SQLite database path (default: arzenal.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Every setting can also come from ARZENAL_* environment variables.
Flags win over the environment, which wins over the config file.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	override(&cfg.Database.Path, dbPath)
	override(&cfg.Server.Addr, addr)
	override(&cfg.Bootstrap.Admin, adminUser)
	override(&cfg.Log.File, logPath)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		logrus.WithError(err).Error("Server failed")
		closeLog()
		os.Exit(1)
	}
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	logrus.WithField("path", cfg.Database.Path).Info("Database ready")

	password, err := ensureAdmin(ctx, database, cfg.Bootstrap.Admin)
	if err != nil {
		return err
	}
	if password != "" {
		printInitResult(cfg.Bootstrap.Admin, password)
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(database, jwtSecret, api.Options{
			TokenTTL:    cfg.Auth.TokenTTL,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		logrus.WithField("signal", sig.String()).Info("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("Server forced to shutdown")
		}
	}()

	logrus.WithField("addr", cfg.Server.Addr).Info("Server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	logrus.Info("Server stopped, closing database")
	return nil
}

// ensureAdmin creates the bootstrap admin when the database has no users
// yet. It returns the generated password, or "" when nothing was created.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	users, err := store.ListUsers(ctx, database, nil)
	if err != nil {
		return "", fmt.Errorf("checking users: %w", err)
	}
	if len(users) > 0 {
		return "", nil
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, username, hash, "", model.RoleAdmin, nil, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}

	logrus.WithField("user", username).Info("Admin account created")
	return password, nil
}

// printInitResult prints the bootstrap credentials to stdout.
func printInitResult(username, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}
