package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"sentinel-planner/internal/planner/ai"
	"sentinel-planner/internal/planner/api"
	plannerDB "sentinel-planner/internal/planner/db"
	"sentinel-planner/internal/planner/engine"
	plKafka "sentinel-planner/internal/planner/kafka"
	"sentinel-planner/internal/planner/rpc"
	"sentinel-planner/internal/planner/services"
	gorm_db "sentinel-planner/pkg/db"
)

func main() {
	stdlog.Println("Planner Service starting...")

	appCtx, appCancel := context.WithCancel(context.Background())

	gormDB, err := gorm_db.NewGormDB()
	if err != nil {
		stdlog.Fatalf("Failed to initialize database: %v", err)
	}
	stdlog.Println("Database initialized successfully.")

	stdlog.Println("Running database migrations...")
	err = gorm_db.AutoMigrate(gormDB, &plannerDB.BehaviorRecord{})
	if err != nil {
		stdlog.Fatalf("Failed to migrate database: %v", err)
	}
	stdlog.Println("Database migration successful.")

	detector := engine.NewDetector()
	generator := engine.NewStepGenerator()

	dispatchProducer := plKafka.NewDispatchProducer()
	suggestionProducer := plKafka.NewSuggestionProducer()

	behaviorService := services.NewBehaviorService(gormDB, detector, generator, suggestionProducer)
	behaviorService.StartConsuming(appCtx)

	schedulerService, err := services.NewSchedulerService(appCtx, dispatchProducer)
	if err != nil {
		stdlog.Fatalf("Failed to create scheduler service: %v", err)
	}
	schedulerService.Start()

	aiClient := ai.NewClientFromEnv()
	if !aiClient.Configured() {
		stdlog.Println("GROQ_API_KEY not set; AI endpoints will report unavailable.")
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}
	wsAddr := os.Getenv("WS_ADDR")
	if wsAddr == "" {
		wsAddr = ":8081"
	}

	hlog.SetOutput(os.Stdout)
	hlog.SetLevel(hlog.LevelInfo)

	h := server.Default(server.WithHostPorts(serverAddr), server.WithExitWaitTime(5*time.Second))

	plannerHandler := api.NewPlannerHandler(detector, generator, schedulerService)
	chatHandler := api.NewChatHandler(aiClient)

	v1 := h.Group("/api/v1")
	{
		v1.POST("/detect-task", plannerHandler.DetectTask)
		v1.POST("/generate-workflow", plannerHandler.GenerateWorkflow)
		v1.POST("/suggest-task", plannerHandler.SuggestTask)
	}

	h.POST("/chat", chatHandler.Chat)
	h.POST("/task/create", chatHandler.CreateTask)
	h.GET("/health", chatHandler.Health)
	h.GET("/", chatHandler.Root)

	adminGroup := h.Group("/admin")
	adminGroup.POST("/scheduler/refresh", func(c context.Context, ctxReq *app.RequestContext) {
		schedulerService.RefreshJobs()
		ctxReq.JSON(http.StatusOK, utils.H{"message": "Scheduler refresh triggered"})
	})

	h.GET("/ping", func(c context.Context, ctxReq *app.RequestContext) {
		ctxReq.JSON(http.StatusOK, utils.H{"message": "pong"})
	})

	// The JSON-RPC socket runs on its own listener so the hertz server and the
	// websocket upgrade path stay independent.
	rpcServer := rpc.NewServer(detector, generator)
	wsHTTP := &http.Server{Addr: wsAddr, Handler: rpcServer.Handler()}
	go func() {
		hlog.Infof("JSON-RPC WebSocket listening on %s", wsAddr)
		if err := wsHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stdlog.Fatalf("WebSocket server failed: %v", err)
		}
	}()

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		sig := <-signals
		hlog.Infof("Received signal: %s. Initiating graceful shutdown...", sig)

		appCancel()

		shutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer httpShutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("Hertz server shutdown error: %v", err)
		} else {
			hlog.Info("Hertz server gracefully stopped.")
		}

		if err := wsHTTP.Shutdown(shutdownCtx); err != nil {
			hlog.Errorf("WebSocket server shutdown error: %v", err)
		} else {
			hlog.Info("WebSocket server gracefully stopped.")
		}

		schedulerService.Stop()

		behaviorService.Close()
		hlog.Info("Behavior consumer closed.")

		if err := dispatchProducer.Close(); err != nil {
			hlog.Errorf("Dispatch producer close error: %v", err)
		}
		if err := suggestionProducer.Close(); err != nil {
			hlog.Errorf("Suggestion producer close error: %v", err)
		}
		hlog.Info("Planner Service gracefully shut down.")
	}()

	hlog.Infof("Planner Service fully initialized and starting Hertz server on %s...", serverAddr)
	h.Spin()

	stdlog.Println("Planner Service has been shut down.")
}
