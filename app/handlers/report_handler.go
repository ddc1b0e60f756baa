package handlers

import (
	"strconv"

	"github.com/anshu-9837/Banning/app/dto"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles single reports, history, export and statistics
type ReportHandler struct {
	baseHandler
	reportFlow businessflow.ReportFlow
}

func NewReportHandler(reportFlow businessflow.ReportFlow, v *validator.Validate, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		baseHandler: newBaseHandler(v, logger),
		reportFlow:  reportFlow,
	}
}

// Submit executes one report
func (h *ReportHandler) Submit(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}
	var req dto.SubmitReportRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.reportFlow.SubmitSingleReport(ctx, actorID, &req)
	if err != nil {
		return h.businessError(c, err, "Failed to submit report", "REPORT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Report submitted", report)
}

// History lists the caller's recent reports, newest first
func (h *ReportHandler) History(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "limit must be a non-negative integer", "INVALID_LIMIT", nil)
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	history, err := h.reportFlow.RecentReports(ctx, actorID, limit)
	if err != nil {
		return h.businessError(c, err, "Failed to load reports", "HISTORY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reports retrieved", history)
}

// Export downloads the caller's reports as a spreadsheet
func (h *ReportHandler) Export(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	filename, content, err := h.reportFlow.ExportReports(ctx, actorID)
	if err != nil {
		return h.businessError(c, err, "Failed to export reports", "EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}

// Stats returns today's counters and all-time totals
func (h *ReportHandler) Stats(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	stats, err := h.reportFlow.Stats(ctx, actorID)
	if err != nil {
		return h.businessError(c, err, "Failed to load statistics", "STATS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Statistics retrieved", stats)
}
