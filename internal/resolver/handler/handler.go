package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medadmit/internal/resolver/models"
	dErrors "medadmit/pkg/domain-errors"
	"medadmit/pkg/platform/httputil"
	"medadmit/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the resolver operations the handler needs.
type Service interface {
	Resolve(ctx context.Context, identifier string, q models.Query) (models.Result, error)
	ResolveBatch(ctx context.Context, identifiers []string, q models.Query) (*models.ResultSet, models.BatchStats, error)
}

// Handler wires resolution endpoints to the resolver engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a resolver handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts resolver endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/resolve", h.HandleResolveBatch)
	r.Get("/resolve", h.HandleResolveSingle)
}

// HandleResolveBatch handles POST /resolve requests.
func (h *Handler) HandleResolveBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ResolveBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	results, stats, err := h.service.ResolveBatch(ctx, req.Identifiers, req.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "batch resolution aborted",
			"request_id", requestID,
			"type", req.Type,
			"identifiers", len(req.Identifiers),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch resolved",
		"request_id", requestID,
		"type", req.Type,
		"total", stats.Total,
		"resolved", stats.Resolved,
		"not_found", stats.NotFound,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, &ResolveBatchResponse{
		Success: true,
		Results: results,
		Stats:   stats,
	})
}

// HandleResolveSingle handles GET /resolve?identifier=&type= requests.
func (h *Handler) HandleResolveSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := ParseResolveSingleRequest(r.URL.Query())
	if err != nil {
		h.logger.InfoContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Resolve(ctx, req.Identifier, req.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "resolution aborted",
			"request_id", requestID,
			"type", req.Type,
			"error", err,
		)
		if !dErrors.HasCode(err, dErrors.CodeTimeout) {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "resolution failed")
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "identifier resolved",
		"request_id", requestID,
		"type", req.Type,
		"method", result.Method,
		"confidence", result.Confidence,
	)

	httputil.WriteJSON(w, http.StatusOK, &ResolveSingleResponse{
		Success:    true,
		Identifier: req.Identifier,
		Type:       req.Type,
		Result:     result,
	})
}
