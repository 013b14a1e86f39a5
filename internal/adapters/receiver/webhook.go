package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

var errUnsupportedContentType = errors.New("unsupported content type")

// WebhookOptions configures the HTTP receiver
type WebhookOptions struct {
	ListenAddress     string
	Path              string
	GinMode           string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	MaxBodyBytes      int64
}

// WebhookReceiver accepts relay POSTs and runs them through the pipeline
type WebhookReceiver struct {
	pipeline *core.IngestionPipeline
	logger   *zap.Logger
	opts     WebhookOptions
	engine   *gin.Engine
	server   *http.Server
	mu       sync.Mutex
}

// NewWebhookReceiver creates a new webhook receiver
func NewWebhookReceiver(pipeline *core.IngestionPipeline, logger *zap.Logger, opts WebhookOptions) *WebhookReceiver {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}

	r := &WebhookReceiver{
		pipeline: pipeline,
		logger:   logger,
		opts:     opts,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), r.requestLogger())
	engine.POST(opts.Path, r.handleWebhook)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.engine = engine

	return r
}

// Handler returns the HTTP handler serving the webhook routes
func (r *WebhookReceiver) Handler() http.Handler {
	return r.engine
}

// ProcessMail runs one mail through the pipeline
func (r *WebhookReceiver) ProcessMail(ctx context.Context, mail *core.InboundMail) *core.Outcome {
	return r.pipeline.Process(ctx, mail)
}

// Start starts serving in the background
func (r *WebhookReceiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.server != nil {
		return fmt.Errorf("webhook receiver already started")
	}

	listener, err := net.Listen("tcp", r.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.opts.ListenAddress, err)
	}

	r.server = &http.Server{
		Handler:           r.engine,
		ReadHeaderTimeout: r.opts.ReadHeaderTimeout,
	}

	r.logger.Info("Starting webhook receiver",
		zap.String("listen_address", listener.Addr().String()),
		zap.String("path", r.opts.Path))

	go func(server *http.Server) {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Webhook server error", zap.Error(err))
		}
	}(r.server)

	return nil
}

// Stop gracefully shuts the server down
func (r *WebhookReceiver) Stop() error {
	r.mu.Lock()
	server := r.server
	r.server = nil
	r.mu.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.opts.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down webhook server: %w", err)
	}

	r.logger.Info("Webhook receiver stopped")
	return nil
}

// webhookRequest is the relay's inbound form. Header-cased keys are
// fallbacks for routes that forward raw message headers.
type webhookRequest struct {
	Sender       string `form:"sender"`
	From         string `form:"from"`
	FromHeader   string `form:"From"`
	Recipient    string `form:"recipient"`
	To           string `form:"To"`
	ToLower      string `form:"to"`
	Subject      string `form:"subject"`
	SubjectTitle string `form:"Subject"`
	BodyPlain    string `form:"body-plain"`
	BodyHTML     string `form:"body-html"`
	StrippedText string `form:"stripped-text"`
	StrippedHTML string `form:"stripped-html"`
	Timestamp    string `form:"timestamp"`
	Token        string `form:"token"`
	Signature    string `form:"signature"`
	MessageID    string `form:"Message-Id"`
	MessageIDLow string `form:"message-id"`
	MessageIDUp  string `form:"Message-ID"`
}

func (w *webhookRequest) inboundMail() *core.InboundMail {
	return &core.InboundMail{
		Sender:       w.Sender,
		From:         firstNonEmpty(w.From, w.FromHeader),
		Recipient:    w.Recipient,
		To:           firstNonEmpty(w.To, w.ToLower),
		Subject:      firstNonEmpty(w.Subject, w.SubjectTitle),
		BodyPlain:    w.BodyPlain,
		BodyHTML:     w.BodyHTML,
		StrippedText: w.StrippedText,
		StrippedHTML: w.StrippedHTML,
		Timestamp:    w.Timestamp,
		Token:        w.Token,
		Signature:    w.Signature,
		MessageID:    firstNonEmpty(w.MessageID, w.MessageIDLow, w.MessageIDUp),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *WebhookReceiver) handleWebhook(c *gin.Context) {
	if r.opts.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.opts.MaxBodyBytes)
	}

	var req webhookRequest
	err := errUnsupportedContentType
	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm, binding.MIMEPOSTForm:
		err = c.ShouldBind(&req)
	}
	if c.Request.MultipartForm != nil {
		defer c.Request.MultipartForm.RemoveAll()
	}
	if err != nil {
		r.logger.Warn("Failed to bind webhook form",
			zap.Error(err),
			zap.String("content_type", c.ContentType()))
		c.JSON(http.StatusBadRequest, core.WebhookResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	outcome := r.ProcessMail(c.Request.Context(), req.inboundMail())
	c.JSON(http.StatusOK, outcome.Response())
}

// requestLogger logs every request at a level chosen by status
func (r *WebhookReceiver) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", strings.TrimSpace(errs)))
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("Request rejected", fields...)
		default:
			r.logger.Info("Request handled", fields...)
		}
	}
}
