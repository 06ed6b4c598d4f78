package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fieldwork-go-api/internal/config"
	"github.com/noah-isme/fieldwork-go-api/internal/database"
	"github.com/noah-isme/fieldwork-go-api/internal/handler"
	"github.com/noah-isme/fieldwork-go-api/internal/middleware"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/repository"
	"github.com/noah-isme/fieldwork-go-api/internal/router"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
	cloud "github.com/noah-isme/fieldwork-go-api/pkg/cloudinary"
	"github.com/noah-isme/fieldwork-go-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Class{},
		&models.Placement{},
		&models.PendingSupervisor{},
		&models.TimesheetEntry{},
		&models.TimesheetJournal{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, cross-node notification fanout disabled")
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	var notificationMailer service.Mailer
	if cfg.SMTPHost != "" {
		smtp, err := mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Sender:   cfg.SMTPSender,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create mailer: %v", err)
		}
		notificationMailer = smtp
	} else {
		logger.Warn().Msg("smtp not configured, notification emails disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	placementRepo := repository.NewPlacementRepository(db)
	pendingRepo := repository.NewPendingSupervisorRepository(db)
	timesheetRepo := repository.NewTimesheetRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, userRepo, redisClient, cfg.NotificationChannel, natsConn, notificationMailer, validate, logger)
	placementService := service.NewPlacementService(placementRepo, pendingRepo, userRepo, classRepo, notificationService, validate, logger)
	pendingService := service.NewPendingSupervisorService(pendingRepo, notificationService, validate, logger)
	timesheetService := service.NewTimesheetService(timesheetRepo, placementRepo, notificationService, validate, logger)
	documentService := service.NewDocumentService(placementRepo, uploader, logger)
	dashboardService := service.NewDashboardService(placementRepo, timesheetRepo, redisClient, cfg.DashboardCacheTTL, logger)

	placementHandler := handler.NewPlacementHandler(placementService, documentService, validate, logger)
	pendingHandler := handler.NewPendingSupervisorHandler(pendingService, logger)
	timesheetHandler := handler.NewTimesheetHandler(timesheetService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		PlacementHandler:         placementHandler,
		PendingSupervisorHandler: pendingHandler,
		TimesheetHandler:         timesheetHandler,
		NotificationHandler:      notificationHandler,
		DashboardHandler:         dashboardHandler,
		JWTMiddleware:            middleware.JWTProtected(cfg.JWTSecret),
	})

	fanoutCtx, stopFanout := context.WithCancel(context.Background())
	defer stopFanout()
	notificationService.Start(fanoutCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
