// Package httpapi exposes ingestion and the reader query over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suhufapp/suhuf/internal/feeds"
	"github.com/suhufapp/suhuf/internal/ingest"
	"github.com/suhufapp/suhuf/internal/logger"
	"github.com/suhufapp/suhuf/internal/metrics"
	"github.com/suhufapp/suhuf/internal/news"
	"github.com/suhufapp/suhuf/internal/notify"
	"github.com/suhufapp/suhuf/internal/ratelimit"
	"github.com/suhufapp/suhuf/internal/storage"
)

// Runner starts ingestion runs. *ingest.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, req ingest.Request) (news.Outcome, error)
	Trigger(req ingest.Request)
}

// ArticleStore is the read side of the article store.
type ArticleStore interface {
	Ping(ctx context.Context) error
	ListArticles(ctx context.Context, q storage.Query) ([]news.Article, error)
	GetStats(ctx context.Context) (map[string]int, error)
}

// FeedLister reports which feeds cover a topic. *feeds.Registry satisfies it.
type FeedLister interface {
	ListFeeds(language, category string) []feeds.Descriptor
}

type Options struct {
	JWTSecret string // empty leaves /ingest open
	MediaDir  string // empty disables /media
}

type Server struct {
	runner  Runner
	store   ArticleStore
	feeds   FeedLister
	hub     *notify.Hub
	metrics *metrics.Metrics
	limiter *ratelimit.AIRateLimiter
	opts    Options
	log     *slog.Logger
}

func New(runner Runner, store ArticleStore, feedList FeedLister, hub *notify.Hub, m *metrics.Metrics, limiter *ratelimit.AIRateLimiter, opts Options, log *slog.Logger) *Server {
	return &Server{
		runner:  runner,
		store:   store,
		feeds:   feedList,
		hub:     hub,
		metrics: m,
		limiter: limiter,
		opts:    opts,
		log:     logger.Component(log, "http"),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())
	_ = router.SetTrustedProxies(nil)

	ingestGroup := router.Group("/ingest")
	if s.opts.JWTSecret != "" {
		ingestGroup.Use(BearerAuth([]byte(s.opts.JWTSecret)))
	}
	ingestGroup.GET("", s.ingest)
	ingestGroup.POST("", s.ingest)

	router.GET("/articles", s.listArticles)
	router.GET("/health", s.health)
	router.GET("/metrics", s.stats)
	if s.hub != nil {
		router.GET("/ws", notify.WSHandler(s.hub))
	}
	if s.opts.MediaDir != "" {
		router.Static("/media", s.opts.MediaDir)
	}
	return router
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(started).Round(time.Millisecond),
		)
	}
}

func (s *Server) ingest(c *gin.Context) {
	var req ingest.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Request.Method == http.MethodPost && strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	outcome, err := s.runner.Run(c.Request.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ingest.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		s.log.Error("ingestion failed", "language", req.Language, "category", req.Category, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"inserted": outcome.InsertedCount,
		"total":    outcome.TotalCandidates,
		"articles": outcome.InsertedArticles,
	})
}

func (s *Server) listArticles(c *gin.Context) {
	q := storage.Query{
		Language: c.Query("language"),
		Category: c.Query("category"),
		Limit:    parseInt(c.Query("limit"), storage.DefaultListLimit),
	}
	if !news.ValidLanguage(q.Language) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language must be 'ar' or 'en'"})
		return
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC3339 timestamp"})
			return
		}
		q.Before = before
		q.BeforeID = c.Query("before_id")
	}

	articles, err := s.store.ListArticles(c.Request.Context(), q)
	if err != nil {
		s.log.Error("list articles failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	// an empty first page means nobody has ingested this topic yet
	if len(articles) == 0 && q.Before.IsZero() && s.hasFeeds(q.Language, q.Category) {
		s.runner.Trigger(ingest.Request{Language: q.Language, Category: q.Category})
	}

	body := gin.H{
		"language": q.Language,
		"category": news.NormalizeCategory(q.Category),
		"count":    len(articles),
		"articles": articles,
	}
	if n := len(articles); n > 0 {
		last := articles[n-1]
		body["next_before"] = last.PublishedAt.UTC().Format(time.RFC3339Nano)
		body["next_before_id"] = last.ID
	}
	c.JSON(http.StatusOK, body)
}

// hasFeeds keeps unauthenticated readers from starting runs for topics no
// feed covers.
func (s *Server) hasFeeds(language, category string) bool {
	return s.feeds != nil && len(s.feeds.ListFeeds(language, category)) > 0
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	stats := s.metrics.GetStats()
	body := gin.H{
		"status":     "ok",
		"store":      "ok",
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		body["store"] = err.Error()
		body["status"] = "error"
		status = http.StatusServiceUnavailable
	} else if !s.metrics.Healthy() {
		body["status"] = "error"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}

func (s *Server) stats(c *gin.Context) {
	body := gin.H{"pipeline": s.metrics.GetStats()}
	if s.limiter != nil {
		body["ai"] = s.limiter.GetStats()
	}
	if articles, err := s.store.GetStats(c.Request.Context()); err == nil {
		body["articles"] = articles
	} else {
		body["articles_error"] = err.Error()
	}
	if s.hub != nil {
		body["ws_subscribers"] = gin.H{
			news.LangArabic:  s.hub.Subscribers(news.LangArabic),
			news.LangEnglish: s.hub.Subscribers(news.LangEnglish),
		}
	}
	c.JSON(http.StatusOK, body)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
