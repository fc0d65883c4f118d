package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	goauth2 "google.golang.org/api/oauth2/v2"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/calendar"
	"github.com/example/room-reservations/internal/catalog"
	"github.com/example/room-reservations/internal/config"
	"github.com/example/room-reservations/internal/credentials"
	"github.com/example/room-reservations/internal/httpapi"
	"github.com/example/room-reservations/internal/identity"
	"github.com/example/room-reservations/internal/notify"
	"github.com/example/room-reservations/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	vault, err := credentials.NewVault(cfg.VaultKey)
	if err != nil {
		logger.Error("failed to initialize credential vault", "error", err)
		os.Exit(1)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			gcal.CalendarEventsScope,
			goauth2.UserinfoEmailScope,
			goauth2.UserinfoProfileScope,
		},
		Endpoint: google.Endpoint,
	}

	calendarService, err := calendar.NewGoogleService(calendar.GoogleConfig{
		OAuth:    oauthConfig,
		TimeZone: cfg.TimeZone,
	})
	if err != nil {
		logger.Error("failed to initialize calendar client", "error", err)
		os.Exit(1)
	}

	reservationRepo := sqlite.NewReservationRepository(pool)
	roomRepo := sqlite.NewRoomRepository(pool)
	equipmentRepo := sqlite.NewEquipmentRepository(pool)
	userRepo := sqlite.NewUserRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	identityService := identity.NewService(identity.Config{
		OAuth:       oauthConfig,
		Users:       userRepo,
		Sessions:    sessionRepo,
		Vault:       vault,
		AdminEmails: cfg.AdminEmails,
		IDGenerator: uuid.NewString,
		SessionTTL:  cfg.SessionTTL,
		Logger:      logger,
	})

	hub := notify.NewHub(logger)
	go hub.Run(ctx)
	go purgeSessions(ctx, identityService, logger)

	bookingService := booking.NewService(
		reservationRepo,
		roomRepo,
		calendarService,
		identityService,
		hub,
		uuid.NewString,
		time.Now,
		cfg.CalendarTimeout,
		logger,
	)
	catalogService := catalog.NewService(roomRepo, equipmentRepo, hub, uuid.NewString, time.Now, logger)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Auth:         httpapi.NewAuthHandler(identityService, logger),
		Reservations: httpapi.NewReservationHandler(bookingService, logger),
		Rooms:        httpapi.NewRoomHandler(catalogService, logger),
		Equipment:    httpapi.NewEquipmentHandler(catalogService, logger),
		Events:       httpapi.NewEventsHandler(hub, logger),
	})

	protected := httpapi.RequireSession(identityService, logger)(router)
	handler := httpapi.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// isPublicPath reports whether the path is reachable without a session. Only
// the OAuth entry points are; everything else requires authentication.
func isPublicPath(path string) bool {
	return strings.EqualFold(path, "/auth/login") || strings.EqualFold(path, "/auth/callback")
}

// purgeSessions periodically removes expired session rows so the table does
// not accumulate stale tokens.
func purgeSessions(ctx context.Context, service *identity.Service, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.PurgeExpiredSessions(ctx); err != nil {
				logger.Error("failed to purge expired sessions", "error", err)
			}
		}
	}
}
