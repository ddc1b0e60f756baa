package handlers

import (
	"context"

	"github.com/anshu-9837/Banning/app/dto"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/anshu-9837/Banning/models"
	"github.com/anshu-9837/Banning/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ProgressReader returns the latest progress snapshot of a batch, nil when none was stored
type ProgressReader interface {
	Latest(ctx context.Context, batchID string) (*dto.BatchProgressResponse, error)
}

// BatchHandler handles batch reports
type BatchHandler struct {
	baseHandler
	batchFlow businessflow.BatchFlow
	progress  ProgressReader
}

func NewBatchHandler(batchFlow businessflow.BatchFlow, progress ProgressReader, v *validator.Validate, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		baseHandler: newBaseHandler(v, logger),
		batchFlow:   batchFlow,
		progress:    progress,
	}
}

// Start stores a batch and runs it in the background
func (h *BatchHandler) Start(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}
	var req dto.StartBatchRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	batch, err := h.batchFlow.StartBatch(ctx, actorID, &req)
	if err != nil {
		return h.businessError(c, err, "Failed to start batch", "BATCH_START_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Batch started", batch)
}

// Get returns one of the caller's batches
func (h *BatchHandler) Get(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	batch, err := h.batchFlow.Get(ctx, actorID, c.Params("batch_id"))
	if err != nil {
		return h.businessError(c, err, "Failed to load batch", "FETCH_BATCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Batch retrieved", batch)
}

// Progress returns the latest progress snapshot; counters from storage are used when none was published
func (h *BatchHandler) Progress(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	batch, err := h.batchFlow.Get(ctx, actorID, c.Params("batch_id"))
	if err != nil {
		return h.businessError(c, err, "Failed to load batch", "FETCH_BATCH_FAILED")
	}

	if h.progress != nil {
		latest, err := h.progress.Latest(ctx, batch.BatchID)
		if err != nil {
			h.logger.Warn("Progress store unavailable", zap.String("batch_id", batch.BatchID), zap.Error(err))
		} else if latest != nil {
			return h.SuccessResponse(c, fiber.StatusOK, "Progress retrieved", latest)
		}
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Progress retrieved", progressFromBatch(batch))
}

// Cancel stops a running batch
func (h *BatchHandler) Cancel(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	batch, err := h.batchFlow.Cancel(ctx, actorID, c.Params("batch_id"))
	if err != nil {
		return h.businessError(c, err, "Failed to cancel batch", "BATCH_CANCEL_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Batch cancelled", batch)
}

func progressFromBatch(b *dto.BatchDTO) *dto.BatchProgressResponse {
	percent := utils.Percent(b.CompletedCount, b.TotalCount)
	eta := (b.TotalCount - b.CompletedCount) * b.DelaySeconds
	return &dto.BatchProgressResponse{
		Progress: &dto.BatchProgress{
			BatchID:       b.BatchID,
			Target:        b.Target,
			Completed:     b.CompletedCount,
			Total:         b.TotalCount,
			Successful:    b.SuccessfulCount,
			Failed:        b.FailedCount,
			StorageFaults: b.StorageFaultCount,
			Percent:       utils.RoundTo(percent, 1),
			ETASeconds:    eta,
			ProgressBar:   businessflow.RenderProgressBar(percent),
		},
		Done: b.Status != models.BatchStatusRunning,
	}
}
