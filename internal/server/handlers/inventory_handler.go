package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/domain/models"
	"github.com/mamadbah2/stockbook/internal/server/middleware"
	"github.com/mamadbah2/stockbook/internal/service/ledger"
)

// Ledger is the subset of the ledger service served over HTTP.
type Ledger interface {
	Add(ctx context.Context, req ledger.AddRequest) (models.StockRow, error)
	Sell(ctx context.Context, name string, quantity int, soldTo string) (ledger.SaleResult, error)
	Update(ctx context.Context, name string, field models.Field, value string) (models.StockRow, error)
	View(ctx context.Context, name string) (models.StockRow, error)
	Dump(ctx context.Context, table string) (models.Table, error)
	Items(ctx context.Context) ([]models.StockRow, error)
	History(ctx context.Context, name string) (models.ItemHistory, error)
}

// Reports serves the dashboard figures.
type Reports interface {
	Stats(ctx context.Context) (models.Stats, error)
	LowStock(ctx context.Context) ([]models.StockRow, error)
}

// ReportRunner triggers the daily report outside its schedule.
type ReportRunner interface {
	DailyReport(ctx context.Context, now time.Time) error
}

// OperationRecorder counts ledger operations by outcome.
type OperationRecorder interface {
	RecordOperation(operation string, err error)
}

// InventoryHandler exposes the ledger and the reports as JSON endpoints.
type InventoryHandler struct {
	ledger  Ledger
	reports Reports
	runner  ReportRunner
	metrics OperationRecorder
	logger  *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter. runner and metrics
// may be nil.
func NewInventoryHandler(l Ledger, reports Reports, runner ReportRunner, metrics OperationRecorder, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{ledger: l, reports: reports, runner: runner, metrics: metrics, logger: logger}
}

type addItemRequest struct {
	Name          string          `json:"name" binding:"required"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	PurchasedBy   string          `json:"purchased_by"`
}

type sellRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	SoldTo   string `json:"sold_to"`
}

type updateRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value" binding:"required"`
}

// text accepts the value either as a JSON string or as a bare number.
func (r updateRequest) text() string {
	var s string
	if err := json.Unmarshal(r.Value, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r.Value))
}

type itemResponse struct {
	models.StockRow
	Status string `json:"status"`
}

type saleResponse struct {
	Sale      models.SalesEntry `json:"sale"`
	Remaining int               `json:"remaining"`
	Removed   bool              `json:"removed"`
}

func newItemResponse(item models.StockRow) itemResponse {
	return itemResponse{StockRow: item, Status: item.Status()}
}

// ListItems returns every Stock row.
func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.ledger.Items(c.Request.Context())
	if err != nil {
		h.fail(c, "list items", err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newItemResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

// AddItem records a delivery.
func (h *InventoryHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	item, err := h.ledger.Add(c.Request.Context(), ledger.AddRequest{
		Name:          req.Name,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		PurchasedBy:   req.PurchasedBy,
	})
	h.record("add", err)
	if err != nil {
		h.fail(c, "add item", err)
		return
	}

	c.JSON(http.StatusCreated, newItemResponse(item))
}

// GetItem returns a single Stock row.
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.ledger.View(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "view item", err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item))
}

// UpdateItem overwrites one field of a Stock row.
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	item, err := h.ledger.Update(c.Request.Context(), c.Param("name"), models.ParseField(req.Field), req.text())
	h.record("update", err)
	if err != nil {
		h.fail(c, "update item", err)
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item))
}

// SellItem records a sale.
func (h *InventoryHandler) SellItem(c *gin.Context) {
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.ledger.Sell(c.Request.Context(), c.Param("name"), req.Quantity, req.SoldTo)
	h.record("sell", err)
	if err != nil {
		h.fail(c, "sell item", err)
		return
	}

	c.JSON(http.StatusOK, saleResponse{Sale: result.Entry, Remaining: result.Remaining, Removed: result.Removed})
}

// ItemHistory returns the item with its incoming and sales entries.
func (h *InventoryHandler) ItemHistory(c *gin.Context) {
	history, err := h.ledger.History(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "item history", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// DumpSheet returns the raw rows of a table. An empty sheet is not an error
// here.
func (h *InventoryHandler) DumpSheet(c *gin.Context) {
	table, err := h.ledger.Dump(c.Request.Context(), c.Param("name"))
	if errors.Is(err, ledger.ErrEmpty) {
		c.JSON(http.StatusOK, models.Table{Name: table.Name, Header: []string{}, Rows: [][]string{}})
		return
	}
	if err != nil {
		h.fail(c, "dump sheet", err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// Stats returns the dashboard figures.
func (h *InventoryHandler) Stats(c *gin.Context) {
	stats, err := h.reports.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// LowStock lists the items under the threshold.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.reports.LowStock(c.Request.Context())
	if err != nil {
		h.fail(c, "low stock", err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newItemResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

// RunDailyReport generates and delivers the daily report now.
func (h *InventoryHandler) RunDailyReport(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "daily report is not configured"})
		return
	}

	if err := h.runner.DailyReport(c.Request.Context(), time.Now()); err != nil {
		middleware.Logger(c, h.logger).Error("daily report failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to deliver report"})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *InventoryHandler) record(operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordOperation(operation, err)
	}
}

func (h *InventoryHandler) badRequest(c *gin.Context, err error) {
	middleware.Logger(c, h.logger).Warn("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func (h *InventoryHandler) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	logger := middleware.Logger(c, h.logger)

	if status >= http.StatusInternalServerError {
		logger.Error(action+" failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	logger.Info(action+" rejected", zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientStock), errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidValue), errors.Is(err, ledger.ErrInvalidArguments):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
