package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/config"
	appHTTP "github.com/glowhouse/portal-backend-go/internal/handler/http"
	"github.com/glowhouse/portal-backend-go/internal/pkg/database"
	"github.com/glowhouse/portal-backend-go/internal/pkg/jwt"
	"github.com/glowhouse/portal-backend-go/internal/pkg/sse"
	"github.com/glowhouse/portal-backend-go/internal/repository/postgresql"
	authService "github.com/glowhouse/portal-backend-go/internal/service/auth"
	notificationService "github.com/glowhouse/portal-backend-go/internal/service/notification"
	timeoffService "github.com/glowhouse/portal-backend-go/internal/service/timeoff"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	employeeRepo := postgresql.NewEmployeeRepository(db)
	requestRepo := postgresql.NewRequestRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	txManager := postgresql.NewTxManager(db)

	requestHub := sse.NewHub()
	notificationHub := sse.NewHub()

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration)

	notifService := notificationService.NewNotificationService(notificationRepo, notificationHub, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
	})
	dispatcher := notificationService.NewDispatcher(notifService, employeeRepo)

	requestValidator := timeoffService.NewValidator(cfg.TimeOff.ExpenseWarnThreshold)
	timeOffSvc := timeoffService.NewService(
		txManager,
		requestRepo,
		balanceRepo,
		employeeRepo,
		dispatcher,
		requestValidator,
		requestHub,
	)

	authSvc := authService.NewService(employeeRepo, jwtService)

	authHandler := appHTTP.NewAuthHandler(authSvc, jwtService)
	timeOffHandler := appHTTP.NewTimeOffHandler(timeOffSvc, jwtService)
	notificationHandler := appHTTP.NewNotificationHandler(notifService, jwtService)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		jwtService,
		authHandler,
		timeOffHandler,
		notificationHandler,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Server running at http://localhost%s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("Server error:", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Println("Shutdown error:", err)
	}

	// Flush queued notifications before exit.
	notifService.Stop()
}
