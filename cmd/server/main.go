package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voluntor/voluntor/internal/auth"
	"github.com/voluntor/voluntor/internal/chat"
	"github.com/voluntor/voluntor/internal/config"
	"github.com/voluntor/voluntor/internal/email"
	"github.com/voluntor/voluntor/internal/handlers"
	"github.com/voluntor/voluntor/internal/logging"
	"github.com/voluntor/voluntor/internal/middleware"
	"github.com/voluntor/voluntor/internal/moderation"
	"github.com/voluntor/voluntor/internal/store/sqlstore"
	"github.com/voluntor/voluntor/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fatal("build logger", err)
	}
	defer logger.Sync()

	secret, err := cfg.JWTSecret()
	if err != nil {
		logger.Fatal("jwt secret", zap.Error(err))
	}

	st, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer st.Close()

	verifier := auth.NewVerifier(secret)
	sender := email.NewSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	registry := chat.NewRegistry()
	hub := ws.NewHub(logger)
	metrics := chat.NewMetrics(prometheus.DefaultRegisterer)
	router := chat.NewRouter(registry, hub, logger)
	gateway := chat.NewGateway(registry, router, st, moderation.Default(), logger, metrics)

	authHandler := &handlers.AuthHandler{Store: st, Verifier: verifier, Email: sender, Logger: logger}
	tutorHandler := &handlers.TutorHandler{Store: st}
	chatHandler := &handlers.ChatHandler{Store: st, Gateway: gateway, Logger: logger, UploadDir: cfg.UploadDir}

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))

	r.HandleFunc("/api/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/api/signin", authHandler.Signin).Methods("POST")

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(middleware.Auth(verifier))
	authed.HandleFunc("/user", tutorHandler.GetProfile).Methods("GET")
	authed.HandleFunc("/user", tutorHandler.UpdateProfile).Methods("PUT")
	authed.HandleFunc("/tutors/search", tutorHandler.SearchTutors).Methods("POST")
	authed.HandleFunc("/tutors/{id}", tutorHandler.GetTutor).Methods("GET")
	authed.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	authed.HandleFunc("/chats", chatHandler.GetChats).Methods("GET")
	authed.HandleFunc("/chats/{id}/messages", chatHandler.GetChatMessages).Methods("GET")
	authed.HandleFunc("/chats/send", chatHandler.Send).Methods("POST")
	authed.HandleFunc("/chats/upload", chatHandler.Upload).Methods("POST")

	r.HandleFunc("/api/uploads/{filename}", chatHandler.ServeUpload).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	// Browsers cannot set headers on websocket requests, so the
	// credential rides in the query string.
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		identity, err := verifier.Verify(req.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ws.ServeWS(hub, gateway, w, req, identity)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", zap.Duration("grace", cfg.ShutdownGracePeriod))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func fatal(msg string, err error) {
	os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	os.Exit(1)
}
