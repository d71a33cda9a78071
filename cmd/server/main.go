package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mailer"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPath)
	if err == nil {
		err = db.Migrate(ctx, gdb)
	}
	if err == nil {
		_, err = db.SeedAdmin(ctx, gdb, cfg.AdminEmail, cfg.AdminPassword)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	publisher, closePublisher := events.New(cfg.KafkaBrokers)

	r := &repo.GormRepo{DB: gdb}
	sessions := session.NewManager(cfg.SessionKey, cfg.JWTSecret, cfg.AccessTTL, cfg.CookieSecure)

	catalog := &service.CatalogService{
		Repo:   r,
		Images: media.NewStore(cfg.UploadDir, "/static/uploads"),
		Events: publisher,
	}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := search.NewClient(esCtx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		esCancel()
		if err != nil {
			logger.Warn("es_unavailable", "reason", "falling back to database search", "error", err)
		} else {
			catalog.Index = client
		}
	}

	cartSvc := &service.CartService{Products: r}

	deps := &httpserver.Deps{
		Storefront: &httpserver.StorefrontHTTP{Catalog: catalog, Cart: cartSvc, Sessions: sessions},
		Auth: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Users:  r,
				OTP:    &service.OTPService{Repo: r, Mailer: mailer.New(cfg.SMTP), TTL: cfg.OTPTTL},
				Events: publisher,
			},
			Sessions: sessions,
			EchoOTP:  cfg.OTPEcho,
		},
		Catalog: &httpserver.CatalogHTTP{Svc: catalog},
		Cart: &httpserver.CartHTTP{
			Cart: cartSvc,
			CheckoutSvc: &service.CheckoutService{
				Cart:      cartSvc,
				PayeeVPA:  cfg.UPIVPA,
				PayeeName: cfg.UPIPayeeName,
				Events:    publisher,
			},
			Sessions: sessions,
		},
		Account: &httpserver.AccountHTTP{
			Addresses: &service.AddressService{Repo: r},
			Orders:    &service.OrderService{Repo: r},
		},
		Sessions:  sessions,
		CSRF:      csrf.Config{Secure: cfg.CookieSecure, EnforceSameOrigin: true},
		UploadDir: cfg.UploadDir,
		Ready: func() error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	}

	if cfg.OTPEcho {
		logger.Warn("otp_echo_enabled", "reason", "signup codes are returned in responses")
	}

	e := httpserver.New(logger, deps)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := closePublisher(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("server_stopped")
}
