package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/priceprobe/checker"
	"github.com/use-agent/priceprobe/models"
	"github.com/use-agent/priceprobe/webhook"
)

// PriceCheck returns a handler for POST /api/v1/price-check.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Checker.Check → ladder + normalisation   (lenient unless req.Strict)
//  3. Fill timing, respond.
//  4. If callback_url is set, deliver the same record asynchronously.
func PriceCheck(ck *checker.Checker, webhookSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.PriceCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.PriceCheckResponse{
				NormalizedPrices: []float64{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		policy := checker.Lenient
		if req.Strict {
			policy = checker.Strict
		}

		// ── 2. Check ────────────────────────────────────────────────
		out, err := ck.Check(c.Request.Context(), checker.Request{
			URL:   req.URL,
			Price: req.Price,
		}, policy)

		// ── 3. Respond ──────────────────────────────────────────────
		resp := models.PriceCheckResponse{URL: req.URL, NormalizedPrices: []float64{}}
		if out != nil {
			resp = out.Report()
		}
		resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()

		status := http.StatusOK
		if err != nil {
			scrapeErr := asScrapeError(err)
			resp.Error = scrapeErr.ToDetail()
			status = mapErrorToStatus(scrapeErr)
		}
		c.JSON(status, resp)

		// ── 4. Callback ─────────────────────────────────────────────
		if req.CallbackURL != "" {
			jobID := uuid.NewString()
			webhook.DeliverAsync(req.CallbackURL, webhookSecret, webhook.NewEvent(jobID, resp), nil)
			slog.Debug("callback scheduled", "job_id", jobID, "callback_url", req.CallbackURL)
		}
	}
}

func asScrapeError(err error) *models.ScrapeError {
	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNotAccessible:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
