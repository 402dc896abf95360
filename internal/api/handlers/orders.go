package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upcymarket/orderapi/internal/api/middleware"
	"github.com/upcymarket/orderapi/internal/domain"
	apperrors "github.com/upcymarket/orderapi/pkg/errors"
)

// OrderService describes the aggregation operations the handlers expose
type OrderService interface {
	Aggregate(ctx context.Context, credential string) ([]domain.EnrichedOrder, error)
	CompleteOrder(ctx context.Context, credential string, orderUUID uuid.UUID) error
}

// OrderResponse represents one enriched order in the list response
type OrderResponse struct {
	OrderUUID    string                   `json:"order_uuid"`
	OrderDate    string                   `json:"order_date"`
	TotalPrice   int64                    `json:"total_price"`
	Transaction  domain.TransactionOption `json:"transaction_option"`
	ServiceTitle string                   `json:"service_title"`
	ReformerName string                   `json:"reformer_name"`
	ImageURL     string                   `json:"image_url,omitempty"`
	Status       domain.StatusKind        `json:"status"`
}

// CompleteOrderRequest carries the explicit confirmation for the
// mark-completed transition. A request without confirm=true is the cancel
// path and has no side effect.
type CompleteOrderRequest struct {
	Confirm bool `json:"confirm" binding:"required"`
}

// HandleListOrders handles GET /v1/orders. Each request runs one aggregation
// cycle; the filter query parameter selects a pure view over that cycle's
// result and never triggers extra upstream calls.
func HandleListOrders(svc OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := middleware.CredentialFromContext(c)

		enriched, err := svc.Aggregate(c.Request.Context(), credential)
		if err != nil {
			respondAggregationError(c, logger, err)
			return
		}

		bucket := domain.ParseFilterBucket(c.Query("filter"))
		filtered := domain.FilterOrders(enriched, bucket)

		orders := make([]OrderResponse, len(filtered))
		for i, order := range filtered {
			orders[i] = OrderResponse{
				OrderUUID:    order.OrderUUID.String(),
				OrderDate:    order.OrderDate.Format("2006-01-02T15:04:05Z07:00"),
				TotalPrice:   order.TotalPrice,
				Transaction:  order.Transaction.Option,
				ServiceTitle: order.ServiceTitle,
				ReformerName: order.ReformerName,
				ImageURL:     order.ImageURL,
				Status:       domain.Classify(order.OrderStatus),
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"filter": bucket,
			"orders": orders,
		})
	}
}

// HandleCompleteOrder handles POST /v1/orders/:id/complete
func HandleCompleteOrder(svc OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := middleware.CredentialFromContext(c)

		orderUUID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
			return
		}

		var req CompleteOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
			c.JSON(http.StatusBadRequest, gin.H{"error": "explicit confirmation required"})
			return
		}

		if err := svc.CompleteOrder(c.Request.Context(), credential, orderUUID); err != nil {
			switch {
			case errors.Is(err, apperrors.ErrAuthenticationMissing):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in"})
			case errors.Is(err, apperrors.ErrCompletionTransitionFailed):
				logger.Error("order completion failed",
					zap.String("order_uuid", orderUUID.String()),
					zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "failed to complete order"})
			default:
				logger.Error("order completion failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "order marked completed"})
	}
}

func respondAggregationError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAuthenticationMissing):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in"})
	case errors.Is(err, apperrors.ErrIdentityResolutionFailed),
		errors.Is(err, apperrors.ErrOrderListUnavailable):
		logger.Error("order aggregation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to retrieve orders"})
	default:
		logger.Error("order aggregation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
