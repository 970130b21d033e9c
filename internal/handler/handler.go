package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-rating/internal/model"
	"go-rating/internal/service"
)

// Services 处理器依赖的服务
type Services struct {
	Users    *service.UserService
	Articles *service.ArticleService
	Ratings  *service.RatingService
	Spam     Reconciler
	Feeds    *service.FeedService
	Status   *service.StatusService
}

// Reconciler 手动触发刷分复核
type Reconciler interface {
	HandleProbableSpamRatings(ctx context.Context) (service.ReconcileResult, error)
}

type Handler struct {
	svc       Services
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	scheduler interface {
		GetNextFetchTime() time.Time
		GetNextReconcileTime() time.Time
	}
}

func NewHandler(svc Services, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	registerValidations()
	return &Handler{svc: svc, gatherer: gatherer, logger: logger}
}

// SetScheduler 设置调度器引用
func (h *Handler) SetScheduler(scheduler interface {
	GetNextFetchTime() time.Time
	GetNextReconcileTime() time.Time
}) {
	h.scheduler = scheduler
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(h.authenticate())
	{
		// Users
		api.POST("/users/register", h.Register)
		api.POST("/users/login", h.Login)

		// Articles
		api.GET("/articles", h.ListArticles)
		api.GET("/articles/:id", h.GetArticle)
		api.POST("/articles", requireUser(), h.CreateArticle)

		// Ratings
		api.POST("/ratings", requireUser(), h.SubmitRating)

		// Feeds
		api.GET("/feeds", h.ListFeeds)
		api.POST("/feeds", requireUser(), h.CreateFeed)
		api.DELETE("/feeds/:id", requireUser(), h.DeleteFeed)
		api.POST("/feeds/:id/fetch", requireUser(), h.FetchFeed)

		// Spam
		api.POST("/spam/reconcile", requireUser(), h.Reconcile)

		// Status
		api.GET("/status", h.GetStatus)
	}
}

// ===== User相关 =====

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.svc.Users.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user": gin.H{
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "must provide username and password"})
		return
	}

	token, err := h.svc.Users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token.Key})
}

// ===== Article相关 =====

type createArticleRequest struct {
	Title string `json:"title" binding:"required,max=255"`
	Body  string `json:"body"`
}

func (h *Handler) ListArticles(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	var userID *uint
	if user := currentUser(c); user != nil {
		userID = &user.ID
	}

	articles, total, err := h.svc.Articles.ListArticles(c.Request.Context(), userID, page, service.DefaultPageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   total,
		"page":    page,
		"results": articles,
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	article, err := h.svc.Articles.GetArticle(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var userRating *int
	if user := currentUser(c); user != nil {
		rating, err := h.svc.Ratings.GetUserRating(c.Request.Context(), user.ID, id)
		switch {
		case err == nil:
			userRating = &rating.Score
		case !errors.Is(err, service.ErrNotFound):
			h.writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, model.NewArticleView(*article, userRating))
}

func (h *Handler) CreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := h.svc.Articles.CreateArticle(c.Request.Context(), req.Title, req.Body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.NewArticleView(*article, nil))
}

// ===== Rating相关 =====

type ratingRequest struct {
	ArticleID uint `json:"article_id" binding:"required"`
	Score     *int `json:"score" binding:"required,rating_score"`
}

func (h *Handler) SubmitRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	rating, err := h.svc.Ratings.Submit(c.Request.Context(), user.ID, req.ArticleID, *req.Score)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, rating)
}

// ===== Feed相关 =====

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.svc.Feeds.ListFeeds(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, feeds)
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var feed model.Feed
	if err := c.ShouldBindJSON(&feed); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	feed.ID = 0

	if err := h.svc.Feeds.CreateFeed(c.Request.Context(), &feed); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, feed)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Feeds.DeleteFeed(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) FetchFeed(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	feed, err := h.svc.Feeds.GetFeed(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	count, err := h.svc.Feeds.FetchFeed(c.Request.Context(), feed)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_articles": count})
}

// ===== Spam相关 =====

func (h *Handler) Reconcile(c *gin.Context) {
	result, err := h.svc.Spam.HandleProbableSpamRatings(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ===== Status相关 =====

func (h *Handler) GetStatus(c *gin.Context) {
	status, err := h.svc.Status.GetSystemStatus(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 添加定时任务信息
	if h.scheduler != nil {
		status.NextFetchTime = h.scheduler.GetNextFetchTime()
		status.NextReconcileTime = h.scheduler.GetNextReconcileTime()
	}

	c.JSON(http.StatusOK, status)
}

// ===== 工具函数 =====

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

var registerOnce sync.Once

// registerValidations 向 gin 的校验器注册自定义规则, 进程内只注册一次
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("handler: gin validator engine is not go-playground/validator")
		}
		if err := v.RegisterValidation("rating_score", validateRatingScore); err != nil {
			panic(fmt.Sprintf("handler: register rating_score validation: %v", err))
		}
	})
}

func validateRatingScore(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return false
		}
		field = field.Elem()
	}
	return field.CanInt() && model.ValidScore(int(field.Int()))
}
