package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/service"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

const defaultCalibrationWindow = 7 * 24 * time.Hour

// CalibrationHandler exposes the resolution review queue.
type CalibrationHandler struct {
	calibration *service.CalibrationService
}

// NewCalibrationHandler constructs handler.
func NewCalibrationHandler(calibration *service.CalibrationService) *CalibrationHandler {
	return &CalibrationHandler{calibration: calibration}
}

// window reads ?from=&to=, defaulting to the last seven days.
func window(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	to, err := parseTimeQuery(c, "to", now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := parseTimeQuery(c, "from", to.Add(-defaultCalibrationWindow))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// Queue GET /calibration/queue?from=&to=&sample_pct=.
func (h *CalibrationHandler) Queue(c *fiber.Ctx) error {
	from, to, err := window(c)
	if err != nil {
		return err
	}
	var pct float64
	if v := c.Query("sample_pct"); v != "" {
		pct, err = strconv.ParseFloat(v, 64)
		if err != nil || pct < 0 || pct > 100 {
			return apperrors.NewValidationError("sample_pct must be between 0 and 100", map[string]any{"sample_pct": v})
		}
	}
	items, err := h.calibration.GenerateQueue(c.UserContext(), from, to, pct)
	if err != nil {
		return err
	}
	out := make([]dto.CalibrationItemResponse, 0, len(items))
	for i := range items {
		out = append(out, calibrationItemResponse(&items[i]))
	}
	return ok(c, out)
}

// Review POST /calibration/:id/review.
func (h *CalibrationHandler) Review(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.ReviewCalibrationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.calibration.ReviewItem(c.UserContext(), c.Params("id"), agent.ID, req.Outcome, req.Notes)
	if err != nil {
		return err
	}
	return ok(c, calibrationItemResponse(item))
}

// Report GET /calibration/report?from=&to=.
func (h *CalibrationHandler) Report(c *fiber.Ctx) error {
	from, to, err := window(c)
	if err != nil {
		return err
	}
	report, err := h.calibration.Report(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return ok(c, report)
}
