package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tillpoint/internal/report"
)

type ReportHTTPHandler struct {
	reports *report.Service
}

func NewReportHTTPHandler(reports *report.Service) *ReportHTTPHandler {
	return &ReportHTTPHandler{reports: reports}
}

type SalesReportQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

func (h *ReportHTTPHandler) SalesReport(c *gin.Context) {
	var query SalesReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("start_date and end_date are required"))
		return
	}

	start, err := time.Parse("2006-01-02", query.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid start_date format"))
		return
	}
	end, err := time.Parse("2006-01-02", query.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid end_date format"))
		return
	}

	summary, err := h.reports.SalesByRange(c.Request.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to build sales report"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Sales report generated", summary))
}
