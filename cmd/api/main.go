package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/avigne/subtrack/internal/config"
	"github.com/avigne/subtrack/internal/handler"
	"github.com/avigne/subtrack/internal/integrations/rates"
	"github.com/avigne/subtrack/internal/middleware"
	"github.com/avigne/subtrack/internal/repository"
	"github.com/avigne/subtrack/internal/service"
	"github.com/avigne/subtrack/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	sender := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, sender)
	ratesClient := rates.NewClient(cfg, logger)
	h := handler.NewHandler(svc, ratesClient)

	// Daily expiry reminder job
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 8 * * *", func() {
		if err := svc.SendExpiryReminders(); err != nil {
			logger.Errorf("Expiry reminder job failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule reminder job: %v", err)
	}
	// Monthly report and budget alert job, first of the month
	if _, err := scheduler.AddFunc("0 9 1 * *", func() {
		if err := svc.SendMonthlyReports(); err != nil {
			logger.Errorf("Monthly report job failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule monthly report job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/currency/convert", h.ConvertCurrency).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/me", h.Me).Methods("GET")
	authRouter.HandleFunc("/me/budget", h.SetBudget).Methods("PUT")
	authRouter.HandleFunc("/subscriptions", h.CreateSubscription).Methods("POST")
	authRouter.HandleFunc("/subscriptions", h.ListSubscriptions).Methods("GET")
	authRouter.HandleFunc("/subscriptions/search", h.SearchSubscriptions).Methods("GET")
	authRouter.HandleFunc("/subscriptions/import", h.ImportCSV).Methods("POST")
	authRouter.HandleFunc("/subscriptions/export", h.ExportCSV).Methods("GET")
	authRouter.HandleFunc("/subscriptions/{id}", h.GetSubscription).Methods("GET")
	authRouter.HandleFunc("/subscriptions/{id}", h.UpdateSubscription).Methods("PUT")
	authRouter.HandleFunc("/subscriptions/{id}", h.DeleteSubscription).Methods("DELETE")
	authRouter.HandleFunc("/subscriptions/{id}/used", h.MarkUsed).Methods("POST")
	authRouter.HandleFunc("/analytics/report", h.Report).Methods("GET")
	authRouter.HandleFunc("/analytics/scores", h.Scores).Methods("GET")
	authRouter.HandleFunc("/analytics/duplicates", h.Duplicates).Methods("GET")
	authRouter.HandleFunc("/analytics/segments", h.Segments).Methods("GET")
	authRouter.HandleFunc("/analytics/forecast", h.Forecast).Methods("GET")
	authRouter.HandleFunc("/analytics/budget-plan", h.BudgetPlan).Methods("GET")
	authRouter.HandleFunc("/analytics/health", h.Health).Methods("GET")
	authRouter.HandleFunc("/analytics/metrics", h.Metrics).Methods("GET")
	authRouter.HandleFunc("/analytics/anomalies", h.Anomalies).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
