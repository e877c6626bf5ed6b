package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"seo-checkout-api/config"
	"seo-checkout-api/handlers"
	"seo-checkout-api/logger"
	"seo-checkout-api/middleware"
	"seo-checkout-api/queue"
	"seo-checkout-api/services/email"
	"seo-checkout-api/services/verify"
	"seo-checkout-api/worker"
)

const salesQueueName = "sales_jobs"

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log)

	slog.Info("server starting", "cpus", runtime.NumCPU())

	var jobQueue *queue.Queue
	var err error
	for retries := 0; retries < 5; retries++ {
		jobQueue, err = queue.NewQueue(cfg.Redis.URL, salesQueueName)
		if err == nil {
			break
		}
		retryDelay := time.Duration(retries+1) * time.Second
		slog.Warn("failed to connect to redis, retrying",
			"attempt", retries+1,
			"error", err,
			"retry_in", retryDelay,
		)
		time.Sleep(retryDelay)
	}
	if err != nil {
		slog.Error("failed to connect to redis after retries", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to redis")

	emailService := email.NewSMTPService(cfg.SMTP)

	workerConcurrency := cfg.Redis.WorkerConcurrency
	if workerConcurrency < 1 {
		workerConcurrency = 1
	} else if workerConcurrency > 8 {
		workerConcurrency = 8
	}

	salesWorker := worker.NewWorker(jobQueue, emailService, cfg.Checkout.SalesEmail)
	salesWorker.Start(workerConcurrency)
	slog.Info("started sales worker", "concurrency", workerConcurrency)

	sessionStore := handlers.NewSessionStore(cfg.Session)

	planHandler := handlers.NewPlanHandler()
	checkoutHandler := handlers.NewCheckoutHandler(jobQueue, cfg.Checkout.PaymentPageURL)
	paymentHandler := handlers.NewPaymentHandler(verify.Config{
		BaseURL:    cfg.Backend.BaseURL,
		HTTPClient: verify.NewHTTPClient(cfg.Backend.Timeout),
	}, sessionStore)
	sessionHandler := handlers.NewSessionHandler(sessionStore)

	rateLimiter := middleware.NewRateLimiter(jobQueue.Client(), cfg.Server.TrustProxy)

	router := mux.NewRouter()
	router.Use(middleware.CORS(cfg.Server.AllowedOrigin))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging)
	router.Use(middleware.SecurityHeaders)

	startTime := time.Now()

	// Registered before the /api subrouter so health checks skip rate limiting.
	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		health := struct {
			Status    string `json:"status"`
			Time      string `json:"time"`
			Redis     string `json:"redis"`
			Uptime    string `json:"uptime"`
			GoVersion string `json:"go_version"`
		}{
			Status:    "ok",
			Time:      time.Now().Format(time.RFC3339),
			Redis:     "connected",
			Uptime:    fmt.Sprintf("%v", time.Since(startTime)),
			GoVersion: runtime.Version(),
		}

		if err := jobQueue.Client().Ping(ctx).Err(); err != nil {
			health.Status = "degraded"
			health.Redis = "error"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(rateLimiter.Middleware)

	api.HandleFunc("/plans", planHandler.ListPlans).Methods("GET", "OPTIONS")
	api.HandleFunc("/checkout/plan", planHandler.GetCheckoutPlan).Methods("GET", "OPTIONS")
	api.HandleFunc("/checkout", checkoutHandler.SubmitCheckout).Methods("POST", "OPTIONS")

	api.HandleFunc("/payment/result", paymentHandler.GetPaymentResult).Methods("GET", "OPTIONS")
	api.HandleFunc("/payment/result/retry", paymentHandler.RetryPaymentResult).Methods("POST", "OPTIONS")

	api.HandleFunc("/session", sessionHandler.CreateSession).Methods("POST", "OPTIONS")
	api.HandleFunc("/session", sessionHandler.GetSession).Methods("GET")
	api.HandleFunc("/session", sessionHandler.DeleteSession).Methods("DELETE")

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.Backend.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		slog.Info("http server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	slog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("stopping sales worker")
	salesWorker.Stop()

	if err := jobQueue.Close(); err != nil {
		slog.Warn("failed to close redis", "error", err)
	}

	slog.Info("server exited")
}
