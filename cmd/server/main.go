package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"attendance-control-plane/internal/audit"
	audithandler "attendance-control-plane/internal/audit/handler"
	auditrepo "attendance-control-plane/internal/audit/repository"
	"attendance-control-plane/internal/checkin"
	checkinhandler "attendance-control-plane/internal/checkin/handler"
	checkinrepo "attendance-control-plane/internal/checkin/repository"
	"attendance-control-plane/internal/config"
	"attendance-control-plane/internal/db"
	"attendance-control-plane/internal/device"
	devicerepo "attendance-control-plane/internal/device/repository"
	"attendance-control-plane/internal/instructor"
	instructorhandler "attendance-control-plane/internal/instructor/handler"
	instructorrepo "attendance-control-plane/internal/instructor/repository"
	"attendance-control-plane/internal/policy/engine"
	policyrepo "attendance-control-plane/internal/policy/repository"
	"attendance-control-plane/internal/review"
	reviewhandler "attendance-control-plane/internal/review/handler"
	"attendance-control-plane/internal/security"
	"attendance-control-plane/internal/server"
	"attendance-control-plane/internal/server/middleware"
	"attendance-control-plane/internal/session"
	sessionhandler "attendance-control-plane/internal/session/handler"
	sessionrepo "attendance-control-plane/internal/session/repository"
	teleotel "attendance-control-plane/internal/telemetry/otel"
	"attendance-control-plane/internal/token"
	tokenrepo "attendance-control-plane/internal/token/repository"
)

const (
	rotationTick = time.Second
	expiryTick   = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := teleotel.NewProviders(ctx, cfg.OTLPEndpoint, "attendance-control-plane", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pubKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privKey, pubKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditor := audit.NewLogger(auditRepo, middleware.ClientIP).
		WithEmitter(teleotel.NewAuditEmitter(providers.LoggerProvider))

	sessionRepo := sessionrepo.NewPostgresRepository(conn)
	tokenSvc := token.NewService(tokenrepo.NewPostgresRepository(conn), sessionRepo,
		security.NewTokenSigner(cfg.TokenSecret))

	attemptRepo := checkinrepo.NewPostgresRepository(conn)
	registry := device.NewRegistry(devicerepo.NewPostgresRepository(conn), attemptRepo, device.Config{
		Penalty:           cfg.TrustPenalty,
		Recovery:          cfg.TrustRecovery,
		Floor:             cfg.TrustFloor,
		MultiDeviceWindow: cfg.MultiDeviceWindow(),
	})

	evaluator := engine.NewOPAEvaluator(policyrepo.NewPostgresRepository(conn))

	checkinSvc := checkin.NewService(sessionRepo, tokenSvc, registry, evaluator, attemptRepo, auditor)
	manager := session.NewManager(sessionRepo, tokenSvc, auditor, session.Defaults{
		RotationInterval: cfg.RotationInterval(),
		Duration:         cfg.SessionDuration(),
		LateAfter:        cfg.LateAfter(),
	})
	reviewSvc := review.NewService(attemptRepo, sessionRepo, auditor)
	authSvc := instructor.NewAuthService(instructorrepo.NewPostgresRepository(conn),
		security.NewHasher(cfg.BcryptCost), tokens, auditor)

	router := server.NewRouter(server.Deps{
		Tokens:   tokens,
		Limiter:  middleware.NewLimiterStore(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Auditor:  auditor,
		Health:   evaluator.HealthCheck,
		Auth:     instructorhandler.NewHandler(authSvc),
		CheckIns: checkinhandler.NewHandler(checkinSvc),
		Sessions: sessionhandler.NewHandler(manager),
		Reviews:  reviewhandler.NewHandler(reviewSvc),
		Audit:    audithandler.NewHandler(auditRepo),
	})

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsWrapper.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go manager.RunRotation(ctx, rotationTick)
	go manager.RunExpiry(ctx, expiryTick)

	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("http server stopped")
}
