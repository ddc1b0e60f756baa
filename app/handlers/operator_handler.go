package handlers

import (
	"github.com/anshu-9837/Banning/app/dto"
	businessflow "github.com/anshu-9837/Banning/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// OperatorHandler lets higher tiers manage the operator allowlist
type OperatorHandler struct {
	baseHandler
	operatorFlow businessflow.OperatorFlow
}

func NewOperatorHandler(operatorFlow businessflow.OperatorFlow, v *validator.Validate, logger *zap.Logger) *OperatorHandler {
	return &OperatorHandler{
		baseHandler:  newBaseHandler(v, logger),
		operatorFlow: operatorFlow,
	}
}

// Update changes the tier or status of an operator
func (h *OperatorHandler) Update(c fiber.Ctx) error {
	actorID, err := h.actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateOperatorRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	operator, err := h.operatorFlow.UpdateOperator(ctx, actorID, c.Params("phone"), &req)
	if err != nil {
		return h.businessError(c, err, "Failed to update operator", "OPERATOR_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Operator updated", operator)
}
