package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-rating/config"
	"go-rating/internal/database"
	"go-rating/internal/handler"
	"go-rating/internal/logging"
	"go-rating/internal/metrics"
	"go-rating/internal/scheduler"
	"go-rating/internal/service"
	"go-rating/internal/spam"
)

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		logging.New("error").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level)
	if cfg.Source() == "" {
		logger.Warn("config file not found, using defaults")
	} else {
		logger.Info("config loaded", "path", cfg.Source())
	}

	// 初始化数据库
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}

	// 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 初始化服务
	articleSvc := service.NewArticleService(db, m)
	classifier := spam.NewClassifier(cfg.ClassifierConfig())
	ratingSvc := service.NewRatingService(db, articleSvc, classifier, logger, m)
	spamSvc := scheduler.NewExclusiveReconciler(
		service.NewSpamService(db, articleSvc, cfg.Spam.ProbDiffLimit, logger, m),
	)
	feedSvc := service.NewFeedService(db, logger)

	// 启动定时任务
	sched := scheduler.NewScheduler(scheduler.Jobs{
		FetchFeeds: feedSvc.FetchAllFeeds,
		Reconcile:  spamSvc.Job,
	}, cfg.Cron.FetchInterval, cfg.SpamSchedule(), logger)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// 初始化Gin
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 注册路由
	h := handler.NewHandler(handler.Services{
		Users:    service.NewUserService(db),
		Articles: articleSvc,
		Ratings:  ratingSvc,
		Spam:     spamSvc,
		Feeds:    feedSvc,
		Status:   service.NewStatusService(db),
	}, reg, logger)
	h.SetScheduler(sched)
	h.RegisterRoutes(r)

	// 启动服务
	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
