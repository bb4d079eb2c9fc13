package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"checkout-module-api/config"
	"checkout-module-api/handlers"
	"checkout-module-api/middleware"
	"checkout-module-api/services/upstream"
)

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-User-Name, X-Request-Id")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		// Only slow requests and errors are worth a log line.
		elapsed := time.Since(start)
		if elapsed > 500*time.Millisecond || wrapper.status >= 400 {
			log.Printf(
				"%s %s %s %s %d %v",
				r.Method,
				r.RequestURI,
				middleware.GetRequestID(r.Context()),
				r.RemoteAddr,
				wrapper.status,
				elapsed,
			)
		}
	})
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.Lmicroseconds | log.LUTC)

	cfg := config.Load()
	log.Printf("Configuration loaded successfully")

	if cfg.Upstreams.AuthBaseURL == "" || cfg.Upstreams.CardBaseURL == "" || cfg.Upstreams.PaymentBaseURL == "" {
		log.Fatalf("Upstream URLs are required: AUTH_UPSTREAM_URL, CARD_UPSTREAM_URL, PAYMENT_UPSTREAM_URL")
	}

	client := upstream.NewClient()

	signinHandler := handlers.NewSigninHandler(client, cfg.Upstreams.AuthBaseURL)
	cardHandler := handlers.NewCardHandler(client, cfg.Upstreams.CardBaseURL)
	paymentHandler := handlers.NewPaymentHandler(client, cfg.Upstreams.PaymentBaseURL)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(middleware.RequestID)
	router.Use(middleware.SecurityHeadersMiddleware)
	router.Use(loggingMiddleware)
	router.Use(middleware.CallerIdentity)

	// Rate limiting is optional: the relay stays up when Redis is absent.
	var rateLimiter *middleware.RateLimiter
	if cfg.Redis.RateLimitEnabled {
		var err error
		rateLimiter, err = middleware.NewRateLimiter(cfg.Redis.URL)
		if err != nil {
			log.Printf("Warning: rate limiting disabled: %v", err)
		} else {
			router.Use(rateLimiter.RateLimitMiddleware())
			defer rateLimiter.Close()
			log.Println("Rate limiting enabled")
		}
	}

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/signin", signinHandler.Signin).Methods("POST", "OPTIONS")
	api.HandleFunc("/module/card/recommend", cardHandler.Recommend).Methods("POST", "OPTIONS")
	api.HandleFunc("/service/card/my", cardHandler.MyCards).Methods("GET", "OPTIONS")
	api.HandleFunc("/module/payment/pay", paymentHandler.Pay).Methods("POST", "OPTIONS")

	startTime := time.Now()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status    string `json:"status"`
			Time      string `json:"time"`
			Uptime    string `json:"uptime"`
			GoVersion string `json:"go_version"`
		}{
			Status:    "ok",
			Time:      time.Now().Format(time.RFC3339),
			Uptime:    fmt.Sprintf("%v", time.Since(startTime)),
			GoVersion: runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	}).Methods("GET")

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Relay starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	<-stop
	log.Println("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
