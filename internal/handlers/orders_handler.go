package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-table-orders/internal/idempotency"
	"github.com/imrishuroy/go-table-orders/internal/menu"
	"github.com/imrishuroy/go-table-orders/internal/orders"
	"github.com/imrishuroy/go-table-orders/internal/validation"
)

// Menu is the catalog view used by the stats endpoint.
type Menu interface {
	Available() []menu.Item
	AvailableCategories() int
}

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	Orders      *orders.Service
	Menu        Menu
	Idempotency *idempotency.Store // optional; nil disables Idempotency-Key handling
	Polling     PollIntervals
	Log         *zap.Logger
}

type ordersHandler struct {
	svc   *orders.Service
	repo  *orders.Repository
	menu  Menu
	idem  *idempotency.Store
	poll  PollIntervals
	log   *zap.Logger
	valid *validatorv10.Validate
	now   func() time.Time
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r gin.IRouter, cfg HandlerConfig) {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Polling == (PollIntervals{}) {
		cfg.Polling = DefaultPollIntervals
	}
	h := &ordersHandler{
		svc:   cfg.Orders,
		repo:  cfg.Orders.Repository(),
		menu:  cfg.Menu,
		idem:  cfg.Idempotency,
		poll:  cfg.Polling,
		log:   cfg.Log,
		valid: validation.New(),
		now:   time.Now,
	}

	r.POST("/orders", h.createOrder)
	r.GET("/orders", h.listOrders)
	r.GET("/orders/history", h.history)
	r.POST("/orders/archive-delivered", h.archiveDelivered)
	r.PUT("/orders/:id/section-status", h.updateSectionStatus)
	r.PUT("/orders/:id/archive", h.archive)
	r.PUT("/orders/:id/cancel", h.cancel)
	r.GET("/stats", h.stats)
}

func (h *ordersHandler) createOrder(c *gin.Context) {
	ctx := c.Request.Context()

	// Bind + validate request
	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.valid); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	idempKey := c.GetHeader("Idempotency-Key")
	if idempKey != "" && h.idem != nil {
		created, err := h.idem.CreateIfNotExists(ctx, idempKey, "")
		if err != nil {
			h.log.Error("idempotency reserve failed", zap.String("idempotency_key", idempKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "idempotency_check_failed"})
			return
		}
		if !created {
			h.replay(c, idempKey)
			return
		}
	} else {
		idempKey = ""
	}

	order, err := h.svc.Create(req.TableNumber, toLineItems(req.Items))
	if err != nil {
		if idempKey != "" {
			if merr := h.idem.MarkFailed(ctx, idempKey, err.Error()); merr != nil {
				h.log.Warn("idempotency mark failed", zap.String("idempotency_key", idempKey), zap.Error(merr))
			}
		}
		h.writeError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"success": true, "order": order})
	if err != nil {
		h.writeError(c, err)
		return
	}
	if idempKey != "" {
		if err := h.idem.MarkDone(ctx, idempKey, order.ID, string(body), http.StatusCreated); err != nil {
			// the order exists; a retry with this key will be told it is still in progress
			h.log.Warn("idempotency mark done failed", zap.String("idempotency_key", idempKey), zap.Error(err))
		}
	}
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// replay answers a repeated Idempotency-Key with the stored outcome.
func (h *ordersHandler) replay(c *gin.Context, key string) {
	rec, err := h.idem.Get(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "idempotency_check_failed"})
		return
	}
	if rec == nil || rec.Status == idempotency.StatusInProgress {
		if rec != nil {
			wait := rec.UpdatedAt.Add(h.idem.Lease()).Sub(h.now())
			c.Header("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
		}
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "request_in_progress"})
		return
	}
	if rec.Status == idempotency.StatusDone && rec.ResponseBody != "" {
		c.Header("Idempotent-Replayed", "true")
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": rec.OrderID})
}

func (h *ordersHandler) listOrders(c *gin.Context) {
	category := c.Query("category")
	section, ok := orders.ParseSection(category)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid_category",
			"message": "category must be pub or pizzeria",
		})
		return
	}

	tag := etag(h.repo.Epoch(), h.repo.Version(), "orders:"+string(section))
	respondPolled(c, h.poll.Orders, tag, func() any {
		return h.repo.ListActive(section)
	})
}

func (h *ordersHandler) history(c *gin.Context) {
	filter, err := orders.ParseHistoryFilter(c.Query("filter"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	// "today" changes at midnight without a commit
	scope := fmt.Sprintf("history:%s:%s", filter, h.now().Format("2006-01-02"))
	tag := etag(h.repo.Epoch(), h.repo.Version(), scope)
	respondPolled(c, h.poll.History, tag, func() any {
		return h.repo.History(filter)
	})
}

func (h *ordersHandler) stats(c *gin.Context) {
	tag := etag(h.repo.Epoch(), h.repo.Version(), "stats")
	respondPolled(c, h.poll.Stats, tag, func() any {
		active, tables := h.repo.ActiveSummary()
		out := gin.H{
			"activeOrders":   active,
			"activeTables":   tables,
			"availableItems": 0,
			"categories":     0,
		}
		if h.menu != nil {
			out["availableItems"] = len(h.menu.Available())
			out["categories"] = h.menu.AvailableCategories()
		}
		return out
	})
}

func (h *ordersHandler) updateSectionStatus(c *gin.Context) {
	var req validation.SectionStatusRequest
	if err := validation.BindAndValidate(c, &req, h.valid); err != nil {
		return
	}

	order, err := h.svc.UpdateSectionStatus(c.Param("id"), orders.Section(req.Section), orders.SectionStatus(req.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func (h *ordersHandler) archive(c *gin.Context) {
	if _, err := h.svc.Archive(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order archived"})
}

func (h *ordersHandler) archiveDelivered(c *gin.Context) {
	count, err := h.svc.ArchiveAllDelivered()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%d delivered orders archived", count),
		"count":   count,
	})
}

func (h *ordersHandler) cancel(c *gin.Context) {
	if _, err := h.svc.Cancel(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order canceled"})
}

// writeError maps domain errors to HTTP statuses. Anything unrecognised is
// a server fault: logged, with in-memory state already rolled back.
func (h *ordersHandler) writeError(c *gin.Context, err error) {
	var ve *orders.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation_failed",
			"fields":  map[string]string{ve.Field: ve.Message},
		})
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not_found", "message": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_transition", "message": err.Error()})
	case errors.Is(err, orders.ErrNotReady):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "not_ready", "message": err.Error()})
	default:
		h.log.Error("order request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal_error"})
	}
}

func toLineItems(items []validation.Item) []orders.LineItem {
	out := make([]orders.LineItem, 0, len(items))
	for _, it := range items {
		li := orders.LineItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Category:   menu.Category(it.Category),
		}
		if it.Price != nil {
			li.Price = *it.Price
		}
		out = append(out, li)
	}
	return out
}
