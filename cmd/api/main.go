package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eadhub/eadhub-payments/internal/infra/cache"
	"github.com/eadhub/eadhub-payments/internal/infra/database"
	"github.com/eadhub/eadhub-payments/internal/infra/http/handlers"
	"github.com/eadhub/eadhub-payments/internal/infra/http/middleware"
	"github.com/eadhub/eadhub-payments/internal/infra/integration/stripe"
	"github.com/eadhub/eadhub-payments/internal/infra/mail"
	"github.com/eadhub/eadhub-payments/internal/infra/queue"
	"github.com/eadhub/eadhub-payments/internal/infra/worker"
	"github.com/eadhub/eadhub-payments/internal/usecase"
)

func main() {
	godotenv.Load()

	appEnv := env("APP_ENV", "development")

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("❌ database: %v", err)
	}
	defer db.Close()

	redisDB, _ := strconv.Atoi(env("REDIS_DB", "0"))
	redisCache, err := cache.NewRedisCache(env("REDIS_ADDR", "localhost:6379"), os.Getenv("REDIS_PASSWORD"), redisDB)
	if err != nil {
		log.Fatalf("❌ redis: %v", err)
	}
	defer redisCache.Close()

	rabbitMQ, err := queue.NewRabbitMQ(
		env("RABBITMQ_USER", "guest"), env("RABBITMQ_PASS", "guest"),
		env("RABBITMQ_HOST", "localhost"), env("RABBITMQ_PORT", "5672"),
	)
	if err != nil {
		log.Fatalf("❌ rabbitmq: %v", err)
	}
	defer rabbitMQ.Close()

	// Repositories
	configRepo := database.NewPaymentConfigRepository(db)
	pixRepo := database.NewPixPaymentRepository(db)
	planRepo := database.NewPlanRepository(db)
	studentRepo := database.NewStudentRepository(db)
	subRepo := database.NewSubscriptionRepository(db)
	store := database.NewStore(db)

	// Gateway and adapters
	gateway := stripe.NewClient(os.Getenv("STRIPE_API_KEY"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	producer := queue.NewProducer(rabbitMQ.Ch)
	mailPort, _ := strconv.Atoi(env("MAIL_PORT", "587"))
	mailSender := mail.NewEmailSender(
		os.Getenv("MAIL_HOST"), mailPort,
		os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"), os.Getenv("MAIL_FROM"),
	)

	// Outside production the PIX flow runs against a local simulator, so the
	// whole lifecycle works without gateway credentials.
	var pixProvider usecase.PixIntentProvider = gateway
	if appEnv != "production" {
		sim, err := stripe.NewPixSimulator(appEnv)
		if err != nil {
			log.Fatalf("❌ pix simulator: %v", err)
		}
		pixProvider = sim
		log.Println("🧪 PIX simulator enabled (non-production environment)")
	}

	// Usecases
	configService := usecase.NewPaymentConfigService(configRepo, redisCache)
	pixUC := usecase.NewPixPaymentUseCase(pixRepo, studentRepo, planRepo, configService, pixProvider, gateway, mailSender)
	checkoutUC := usecase.NewCheckoutUseCase(studentRepo, planRepo, subRepo, configService, pixUC, gateway)
	subscriptionUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, store, gateway)
	reconciler := usecase.NewWebhookReconciler(store, producer)

	// Workers
	emailWorker := queue.NewWorker(rabbitMQ.Ch, mailSender)
	go emailWorker.Start(queue.QueueName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expirationWorker := worker.NewPixExpirationWorker(pixUC)
	go expirationWorker.Start(ctx)

	// Handlers
	paymentHandler := handlers.NewPaymentHandler(checkoutUC, pixUC)
	configHandler := handlers.NewConfigHandler(configService)
	webhookHandler := handlers.NewWebhookHandler(gateway, reconciler)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionUC)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn, redisCache.Client())

	// Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(middleware.Metrics)
	r.Use(middleware.IdentityExtractor)

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhooks/stripe", webhookHandler.Handle)

	r.Route("/api", func(r chi.Router) {
		r.Get("/plans", subscriptionHandler.HandleListPlans)
		r.Get("/plans/{planID}", subscriptionHandler.HandleGetPlan)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStudent)
			r.Post("/payments/checkout", paymentHandler.HandleCheckout)
			r.Get("/payments/pix/{paymentID}/status", paymentHandler.HandlePixStatus)
			r.Post("/subscriptions", subscriptionHandler.HandleCreate)
			r.Get("/subscriptions/current", subscriptionHandler.HandleGetCurrent)
			r.Post("/subscriptions/cancel", subscriptionHandler.HandleCancel)
			r.Post("/subscriptions/reactivate", subscriptionHandler.HandleReactivate)
			r.Post("/subscriptions/renew", subscriptionHandler.HandleRenew)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/payment-config", configHandler.HandleGet)
			r.Put("/payment-config", configHandler.HandleUpdate)
		})
	})

	port := ":" + env("PORT", "8080")
	log.Printf("🔥 eadhub-payments rodando na porta %s (env=%s)", port, appEnv)

	server := &http.Server{Addr: port, Handler: r}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
