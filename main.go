package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hapienAPI/handlers"
	"hapienAPI/internal/notification"
	"hapienAPI/middleware"
	"hapienAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	sessionService      *services.SessionService
	userService         *services.UserService
	smsService          *services.SMSService
	authService         *services.AuthService
	notificationService *services.NotificationService
	friendshipService   *services.FriendshipService
	razorpayService     *services.RazorpayService
	paymentService      *services.PaymentService
	chatService         *services.ChatService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	signingKey := os.Getenv("SESSION_SIGNING_KEY")
	if signingKey == "" {
		log.Fatal("SESSION_SIGNING_KEY environment variable is not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	sessionService = services.NewSessionService(dbPool, []byte(signingKey))
	userService = services.NewUserService(dbPool)
	smsService = services.NewSMSService()
	authService = services.NewAuthService(dbPool, sessionService, userService, smsService)
	notificationService = services.NewNotificationService(dbPool)
	friendshipService = services.NewFriendshipService(dbPool, notificationService)
	razorpayService = services.NewRazorpayService()
	paymentService = services.NewPaymentService(dbPool, notificationService)
	chatService = services.NewChatService()

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM, push disabled: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM push provider initialized successfully")
	}

	if !smsService.Configured() {
		log.Println("Warning: SMS provider not configured, OTPs will be logged")
	}
	if !razorpayService.Configured() {
		log.Println("Warning: Razorpay not configured, payments disabled")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	authHandler := handlers.NewAuthHandler(authService, sessionService)
	userHandler := handlers.NewUserHandler(userService)
	friendshipHandler := handlers.NewFriendshipHandler(friendshipService)
	paymentHandler := handlers.NewPaymentHandler(razorpayService, paymentService)
	chatHandler := handlers.NewChatHandler(chatService)
	smsHandler := handlers.NewSMSHandler(smsService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	pageHandler := handlers.NewPageHandler()

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	assetsDir := "./assets"
	fs := http.FileServer(http.Dir(assetsDir))
	standardRouter.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", fs))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "hapien-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/send-otp", smsHandler.SendOTP).Methods("POST")

	// -------------------------------------------------------------------------
	// PAGE ROUTES (SESSION COOKIE GUARD)
	// -------------------------------------------------------------------------
	pages := standardRouter.NewRoute().Subrouter()
	pages.Use(middleware.PageGuardMiddleware(sessionService, userService))

	pages.HandleFunc("/", pageHandler.Home).Methods("GET")
	pages.HandleFunc("/auth/login", pageHandler.Login).Methods("GET")
	pages.HandleFunc("/onboarding", pageHandler.Onboarding).Methods("GET")
	pages.HandleFunc("/communities", pageHandler.Communities).Methods("GET")
	pages.HandleFunc("/feed", pageHandler.Feed).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/otp/request", authHandler.RequestOTP).Methods("POST")
	api.HandleFunc("/auth/otp/verify", authHandler.VerifyOTP).Methods("POST")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")
	api.HandleFunc("/auth/signout", authHandler.SignOut).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER OR SESSION COOKIE)
	// -------------------------------------------------------------------------
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(sessionService))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")

	protected.HandleFunc("/user/friends", friendshipHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/user/friends/request", friendshipHandler.SendRequest).Methods("POST")
	protected.HandleFunc("/user/friends/requests", friendshipHandler.GetPendingRequests).Methods("GET")
	protected.HandleFunc("/user/friends/{id}/accept", friendshipHandler.AcceptRequest).Methods("PUT")
	protected.HandleFunc("/user/friends/{id}/reject", friendshipHandler.RejectRequest).Methods("PUT")

	protected.HandleFunc("/payments/create-order", paymentHandler.CreateOrder).Methods("POST")
	protected.HandleFunc("/payments/verify", paymentHandler.VerifyPayment).Methods("POST")

	protected.HandleFunc("/ai/chat", chatHandler.Chat).Methods("POST")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
