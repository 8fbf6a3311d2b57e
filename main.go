package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agendly/config"
	"agendly/database"
	agendaRepo "agendly/database/repository/agenda"
	conversationRepo "agendly/database/repository/conversation"
	directoryRepo "agendly/database/repository/directory"
	"agendly/handlers"
	"agendly/middleware"
	"agendly/routes"
	"agendly/services/calendar"
	"agendly/services/dialogue"
	"agendly/services/directory"
	"agendly/services/reminder"
	"agendly/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitStateCache()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	db := database.DB()

	// repositories.
	agRepo := agendaRepo.NewMongoAgendaRepo(db)
	dirRepo := directoryRepo.NewMongoDirectoryRepo(db)

	// reminder queue.
	reminderRedisOpt := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueue,
	}
	reminderScheduler := reminder.NewScheduler(
		reminderRedisOpt,
		logger,
		time.Duration(config.AppConfig.ReminderLeadMins)*time.Minute,
	)
	reminder.InitReminderWorker(reminderRedisOpt, &reminder.LogSender{Logger: logger}, logger, config.AppConfig.TZOffsetMinutes)

	// services.
	calendarClient := calendar.NewMongoCalendar(
		agRepo,
		reminderScheduler,
		logger,
		config.AppConfig.BookingWindowDays,
		config.AppConfig.TZOffsetMinutes,
	)
	var stateStore dialogue.StateStore
	if config.AppConfig.StateBackend == "mongo" {
		stateStore = conversationRepo.NewMongoConversationRepo(db)
	} else {
		stateStore = dialogue.NewRedisStateStore(
			utils.GetStateCacheClient(),
			time.Duration(config.AppConfig.StateTTLMinutes)*time.Minute,
		)
	}
	engine := dialogue.NewDefaultDialogueEngine(stateStore, calendarClient, logger, config.AppConfig.TZOffsetMinutes)
	directoryService := directory.NewCachedDirectoryService(
		dirRepo,
		utils.GetCacheClient(),
		time.Duration(config.AppConfig.DirectoryTTLSecs)*time.Second,
	)

	messageHandler := handlers.NewMessageHandler(engine, directoryService, logger)
	routes.RegisterRoutes(router, messageHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := reminderScheduler.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close reminder scheduler: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
