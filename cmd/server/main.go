// Command server runs the EDGE auth service as a standalone HTTP server:
// magic-link and social sign-in, the onboarding gate and the protected
// organizations area, backed by Postgres when DATABASE_URL is set and by the
// in-memory store otherwise.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/courtedge/edgeauth"
	oauth "github.com/courtedge/edgeauth/oauth2"
	"github.com/courtedge/edgeauth/stores"
	gormstore "github.com/courtedge/edgeauth/stores/gorm"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	var store edgeauth.AuthStore
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pg, err := gormstore.Open(dsn)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		store = pg
		slog.Info("using postgres store")
	} else {
		store = stores.NewMemoryStore()
		slog.Warn("DATABASE_URL not set, using in-memory store")
	}

	svc := edgeauth.New("EDGE")
	svc.Store = store
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		svc.EmailSender = &edgeauth.ResendEmailSender{
			APIKey: apiKey,
			From:   os.Getenv("RESEND_FROM"),
		}
	}
	svc.EnsureDefaults()

	// Social providers funnel their assertions into the shared SignIn.
	handleSocial := func(assertion edgeauth.SocialAssertion, w http.ResponseWriter, r *http.Request) {
		svc.SignIn(assertion, w, r)
	}
	svc.AddProvider("google", oauth.NewGoogleOAuth2("", "", "", handleSocial).Handler())
	svc.AddProvider("microsoft", oauth.NewMicrosoftOAuth2("", "", "", handleSocial).Handler())

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	router.PathPrefix("/").Handler(svc.Handler())

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
