package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
	"tillpoint/internal/order"
	"tillpoint/internal/pricing"
	"tillpoint/internal/refund"
)

const (
	orderCachePrefix = "orders:"
	orderCacheTTL    = 5 * time.Minute
)

type OrderHTTPHandler struct {
	ledger  *order.Ledger
	refunds *refund.Processor
	cache   *redis.Client // optional
}

func NewOrderHTTPHandler(ledger *order.Ledger, refunds *refund.Processor, cache *redis.Client) *OrderHTTPHandler {
	return &OrderHTTPHandler{
		ledger:  ledger,
		refunds: refunds,
		cache:   cache,
	}
}

// Request structs
type OrderItemRequest struct {
	ID           string              `json:"id"`
	Name         string              `json:"name" binding:"required"`
	Price        decimal.Decimal     `json:"price"`
	Quantity     int32               `json:"quantity" binding:"required,min=1"`
	Discount     string              `json:"discount"`
	DiscountType models.DiscountType `json:"discount_type"`
}

type CreateOrderRequest struct {
	Items          []OrderItemRequest  `json:"items" binding:"required,min=1,dive"`
	Discount       string              `json:"discount"`
	DiscountType   models.DiscountType `json:"discount_type"`
	Status         models.OrderStatus  `json:"status"`
	CustomerID     *string             `json:"customer_id,omitempty"`
	CustomerName   *string             `json:"customer_name,omitempty"`
	PaymentMethod  string              `json:"payment_method"`
	PaymentDetails *string             `json:"payment_details,omitempty"`
}

type UpdateOrderRequest struct {
	Status       *models.OrderStatus `json:"status,omitempty"`
	CustomerID   *string             `json:"customer_id,omitempty"`
	CustomerName *string             `json:"customer_name,omitempty"`
}

type CreateRefundRequest struct {
	Items          []refund.ItemRequest `json:"items" binding:"required,min=1"`
	Method         models.RefundMethod  `json:"method" binding:"required"`
	Note           *string              `json:"note,omitempty"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

type ListOrdersQuery struct {
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
	Status     string `form:"status,omitempty"`
	CustomerID string `form:"customer_id,omitempty"`
	StartDate  string `form:"start_date,omitempty"`
	EndDate    string `form:"end_date,omitempty"`
}

// statusForError maps the core error kinds onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, refund.ErrDuplicate), errors.Is(err, order.ErrStateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *OrderHTTPHandler) invalidateOrderCache(ctx context.Context, orderID string) {
	if h.cache == nil {
		return
	}
	_ = h.cache.Del(ctx, orderCachePrefix+orderID)
}

func (h *OrderHTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.OrderItem{
			ItemID:       item.ID,
			Name:         item.Name,
			UnitPrice:    item.Price,
			Quantity:     item.Quantity,
			Discount:     pricing.ParseAmount(item.Discount),
			DiscountType: item.DiscountType,
		}
	}

	o, err := h.ledger.CreateOrder(c.Request.Context(), order.Draft{
		Items:          items,
		Discount:       pricing.ParseAmount(req.Discount),
		DiscountType:   req.DiscountType,
		Status:         req.Status,
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		PaymentMethod:  req.PaymentMethod,
		PaymentDetails: req.PaymentDetails,
	})
	if err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created successfully", o))
}

func (h *OrderHTTPHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if h.cache != nil {
		if raw, err := h.cache.Get(ctx, orderCachePrefix+id).Bytes(); err == nil {
			var cached models.Order
			if json.Unmarshal(raw, &cached) == nil {
				c.JSON(http.StatusOK, successResponse("Order retrieved successfully", cached))
				return
			}
		}
	}

	o, err := h.ledger.GetOrderByID(ctx, id)
	if err != nil {
		c.JSON(statusForError(err), errorResponse("Order not found"))
		return
	}

	if h.cache != nil {
		if raw, err := json.Marshal(o); err == nil {
			_ = h.cache.Set(ctx, orderCachePrefix+id, raw, orderCacheTTL)
		}
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", o))
}

func (h *OrderHTTPHandler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	f := order.Filter{
		Status:     models.OrderStatus(query.Status),
		CustomerID: query.CustomerID,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if query.StartDate != "" {
		if start, err := time.Parse("2006-01-02", query.StartDate); err == nil {
			f.From = start
		}
	}
	if query.EndDate != "" {
		if end, err := time.Parse("2006-01-02", query.EndDate); err == nil {
			f.To = end.AddDate(0, 0, 1)
		}
	}

	orders, total, err := h.ledger.ListOrders(c.Request.Context(), f)
	if err != nil {
		c.JSON(statusForError(err), errorResponse("Failed to list orders"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orders, PaginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: total,
	}))
}

// UpdateOrder handles manual status overrides and customer reassignment.
func (h *OrderHTTPHandler) UpdateOrder(c *gin.Context) {
	id := c.Param("id")

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	if req.Status == nil && req.CustomerID == nil && req.CustomerName == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Nothing to update"))
		return
	}

	upd := order.Update{Status: req.Status}
	if req.CustomerID != nil || req.CustomerName != nil {
		upd.Customer = &order.CustomerUpdate{ID: req.CustomerID, Name: req.CustomerName}
	}

	ctx := c.Request.Context()
	o, err := h.ledger.UpdateOrder(ctx, id, upd)
	if err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}

	h.invalidateOrderCache(ctx, id)
	c.JSON(http.StatusOK, successResponse("Order updated successfully", o))
}

func (h *OrderHTTPHandler) DeleteOrder(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if err := h.ledger.DeleteOrder(ctx, id); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}

	h.invalidateOrderCache(ctx, id)
	c.JSON(http.StatusOK, successResponse("Order deleted successfully", nil))
}

func (h *OrderHTTPHandler) GetBalance(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	o, err := h.ledger.GetOrderByID(ctx, id)
	if err != nil {
		c.JSON(statusForError(err), errorResponse("Order not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Balance retrieved successfully", gin.H{
		"order_id":          o.ID,
		"total":             pricing.Display(o.TotalAmount),
		"total_refunded":    pricing.Display(o.TotalRefunded()),
		"remaining_balance": pricing.Display(o.RemainingBalance()),
	}))
}

func (h *OrderHTTPHandler) CreateRefund(c *gin.Context) {
	id := c.Param("id")

	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader("X-Idempotency-Key")
	}

	ctx := c.Request.Context()
	result, err := h.refunds.ProcessRefund(ctx, refund.Request{
		OrderID:        id,
		Items:          req.Items,
		Method:         req.Method,
		Note:           req.Note,
		IdempotencyKey: key,
	})
	if err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}

	h.invalidateOrderCache(ctx, id)
	c.JSON(http.StatusCreated, successResponse("Refund processed successfully", gin.H{
		"order":             result.Order,
		"refund":            result.Refund,
		"inventory_updated": result.InventoryUpdated,
	}))
}
