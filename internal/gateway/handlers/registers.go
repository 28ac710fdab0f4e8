package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
	"tillpoint/internal/register"
)

type RegisterHTTPHandler struct {
	sessions *register.Service
}

func NewRegisterHTTPHandler(sessions *register.Service) *RegisterHTTPHandler {
	return &RegisterHTTPHandler{sessions: sessions}
}

type OpenSessionRequest struct {
	RegisterName string          `json:"register_name" binding:"required"`
	CashierID    string          `json:"cashier_id" binding:"required"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type RecordMovementRequest struct {
	Type      models.MovementType `json:"type" binding:"required"`
	Amount    decimal.Decimal     `json:"amount" binding:"required"`
	Reference *string             `json:"reference,omitempty"`
}

type CloseSessionRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash"`
}

func registerStatus(err error) int {
	switch {
	case errors.Is(err, register.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, register.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, register.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *RegisterHTTPHandler) OpenSession(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	session, err := h.sessions.OpenSession(c.Request.Context(), req.RegisterName, req.CashierID, req.OpeningFloat)
	if err != nil {
		c.JSON(registerStatus(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, successResponse("Register session opened", session))
}

func (h *RegisterHTTPHandler) GetSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(registerStatus(err), errorResponse("Session not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Session retrieved successfully", session))
}

func (h *RegisterHTTPHandler) RecordMovement(c *gin.Context) {
	var req RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	movement, err := h.sessions.RecordMovement(c.Request.Context(), c.Param("id"), req.Type, req.Amount, req.Reference)
	if err != nil {
		c.JSON(registerStatus(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, successResponse("Movement recorded", movement))
}

func (h *RegisterHTTPHandler) CloseSession(c *gin.Context) {
	var req CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	session, err := h.sessions.CloseSession(c.Request.Context(), c.Param("id"), req.CountedCash)
	if err != nil {
		c.JSON(registerStatus(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse("Register session closed", session))
}
