package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jnfrati/buzon/internal/config"
	"github.com/jnfrati/buzon/internal/logger"
	"github.com/jnfrati/buzon/internal/metrics"
	"github.com/jnfrati/buzon/internal/models"
	"github.com/jnfrati/buzon/internal/queue"
)

var (
	ErrPayloadTooLarge = errors.New("message exceeds the maximum size")
	ErrDecode          = errors.New("couldn't decode message")
)

type Options struct {
	MaxMessageBytes int64
	DefaultWait     time.Duration
	MaxWait         time.Duration

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MaxMessageBytes: cfg.MaxMessageBytes,
		DefaultWait:     cfg.DefaultWait,
		MaxWait:         cfg.MaxWait,
	}
}

// ReadBody reads at most limit bytes from the request and decodes them into
// a T. Nothing is decoded unless the whole body fits.
func ReadBody[T any](ctx *gin.Context, limit int64, decode func(*T, []byte) error) (*T, error) {
	if ctx.Request.ContentLength > limit {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "declared %d bytes, limit is %d", ctx.Request.ContentLength, limit)
	}

	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errors.Wrapf(ErrPayloadTooLarge, "limit is %d", limit)
		}
		return nil, errors.Wrap(err, "couldn't read request body")
	}

	value := new(T)
	if err := decode(value, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return value, nil
}

type handler struct {
	client queue.Client
	opts   Options
}

func (h *handler) handleErr(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	kind := metrics.KindLock

	switch {
	case errors.Is(err, queue.ErrQueueNotFound):
		status, kind = http.StatusBadRequest, metrics.KindNotFound
	case errors.Is(err, ErrPayloadTooLarge):
		status, kind = http.StatusRequestEntityTooLarge, metrics.KindTooLarge
	case errors.Is(err, ErrDecode):
		status, kind = http.StatusBadRequest, metrics.KindDecode
	}

	h.opts.Metrics.Error(kind)

	event := logger.Global.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Global.Error().Stack()
	}

	event.
		Str("method", ctx.Request.Method).
		Str("url.path", ctx.Request.URL.Path).
		Int("status", status).
		Err(err).
		Msgf("error occured while processing the request")

	ctx.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
	})
}

func (h *handler) postMessage(ctx *gin.Context) {
	name := ctx.Param("queue_name")

	msg, err := ReadBody(ctx, h.opts.MaxMessageBytes, (*models.Message).FromRawMessage)
	if err != nil {
		h.handleErr(ctx, err)
		return
	}

	if msg.Id == "" {
		msg.Id = uuid.NewString()
	}

	if h.client.EnsureQueue(name) {
		h.opts.Metrics.QueueCreated()
		logger.Global.Info().Str("queue", name).Msg("queue created")
	}

	if err := h.client.PostMessage(name, msg); err != nil {
		h.handleErr(ctx, err)
		return
	}

	h.opts.Metrics.Posted(name)
	ctx.Status(http.StatusOK)
}

func (h *handler) getMessage(ctx *gin.Context) {
	name := ctx.Param("queue_name")

	if !h.client.QueueExists(name) {
		h.handleErr(ctx, errors.Wrapf(queue.ErrQueueNotFound, "queue %q", name))
		return
	}

	timeout := h.waitFor(ctx.Query("timeout"))

	start := time.Now()
	msg, err := h.client.GetMessage(name, timeout)
	if err != nil {
		h.handleErr(ctx, err)
		return
	}

	h.opts.Metrics.Got(name, msg != nil, time.Since(start))

	if msg == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}

// waitFor turns the timeout query parameter (milliseconds) into a wait.
// Missing, malformed or negative values fall back to the default; zero means
// don't wait at all.
func (h *handler) waitFor(raw string) time.Duration {
	if raw == "" {
		return h.opts.DefaultWait
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return h.opts.DefaultWait
	}

	if ms > h.opts.MaxWait.Milliseconds() {
		return h.opts.MaxWait
	}

	return time.Duration(ms) * time.Millisecond
}

func (h *handler) listQueues(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.client.Stats())
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		logger.Global.Debug().
			Str("method", ctx.Request.Method).
			Str("url.path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// NewRouter builds the HTTP surface on top of client.
func NewRouter(client queue.Client, opts Options) *gin.Engine {
	if opts.DefaultWait <= 0 {
		opts.DefaultWait = queue.DefaultTimeout
	}
	if opts.MaxWait < opts.DefaultWait {
		opts.MaxWait = opts.DefaultWait
	}

	h := &handler{client: client, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	r.GET("/api", h.listQueues)
	r.POST("/api/:queue_name", h.postMessage)
	r.GET("/api/:queue_name", h.getMessage)

	return r
}

func Start(ctx context.Context, addr string, router http.Handler, maxWait, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: maxWait + 5*time.Second,
		IdleTimeout:  60 * time.Second,
		// 1 MB
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		logger.Global.Info().Msgf("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Global.Error().Err(err).Msg("API server failed to start")
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "api server")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Global.Info().Msg("Shutting down API server...")

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Global.Error().Err(err).Msg("API server forced to shutdown")
		return err
	}

	logger.Global.Info().Msg("API server gracefully stopped")
	return nil
}
