package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/amir0eveloper/rdmc-srshb/internal/adapters/db/sqlite"
	httpadapter "github.com/amir0eveloper/rdmc-srshb/internal/adapters/http"
	rpcadapter "github.com/amir0eveloper/rdmc-srshb/internal/adapters/rpcjson"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/session"
	"github.com/amir0eveloper/rdmc-srshb/internal/adapters/storage/filestore"
	"github.com/amir0eveloper/rdmc-srshb/internal/application"
	"github.com/amir0eveloper/rdmc-srshb/internal/config"
	"github.com/amir0eveloper/rdmc-srshb/internal/metrics"
	"github.com/urfave/cli/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "rdmc",
		Usage: "Research data repository server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			communitiesCommand(),
			collectionsCommand(),
			itemsCommand(),
			reviewCommand(),
			discoverCommand(),
			statsCommand(),
			usersCommand(),
			auditCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP API and the JSON-RPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (RDMC_HTTP_ADDR)"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path (RDMC_RPC_SOCKET)"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (RDMC_DB_PATH)"},
			&cli.StringFlag{Name: "upload-dir", Usage: "bitstream directory (RDMC_UPLOAD_DIR)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (RDMC_LOG_LEVEL)"},
			&cli.BoolFlag{Name: "secure-cookies", Usage: "mark session cookies Secure"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			for flag, dst := range map[string]*string{
				"addr":       &cfg.HTTPAddr,
				"rpc-socket": &cfg.RPCSocket,
				"db-path":    &cfg.DBPath,
				"upload-dir": &cfg.UploadDir,
				"log-level":  &cfg.LogLevel,
			} {
				if c.IsSet(flag) {
					*dst = c.String(flag)
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(ctx, cfg, c.Bool("secure-cookies"))
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, secureCookies bool) error {
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	generated, err := cfg.EnsureSessionSecret()
	if err != nil {
		return err
	}
	if generated {
		log.Warn("no session secret configured, generated one; sessions end on restart")
	}

	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}
	files, err := filestore.NewAt(cfg.UploadDir, log.Named("files"))
	if err != nil {
		return err
	}

	m := metrics.New()
	service := application.NewService(
		sqliteadapter.NewRepository(db),
		files,
		session.NewSigner(cfg.SessionSecret, cfg.SessionTTL),
		log.Named("service"),
		application.WithRecorder(m),
	)
	generatedPassword, err := cfg.EnsureBootstrapPassword()
	if err != nil {
		return err
	}
	created, err := service.BootstrapAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	if created && generatedPassword {
		log.Warn("no bootstrap admin password configured, generated one; change it after first login",
			zap.String("username", cfg.BootstrapAdminUsername),
			zap.String("password", cfg.BootstrapAdminPassword))
	}

	router := httpadapter.NewRouter(service, httpadapter.Options{
		Log:            log.Named("http"),
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  secureCookies,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service, log.Named("rpc"))
	if err != nil {
		return err
	}
	log.Info("json-rpc listening", zap.String("socket", cfg.RPCSocket))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		return errs.Combine(err, rpcSrv.Close())
	})
	return group.Wait()
}
