package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"medistock/internal/cart"
	"medistock/internal/invoice"
	"medistock/internal/models"
	"medistock/internal/service"
	"medistock/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog      *service.CatalogService
	checkout     *service.CheckoutCoordinator
	carts        *cart.Manager
	presentation invoice.Presentation
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	checkout *service.CheckoutCoordinator,
	carts *cart.Manager,
	presentation invoice.Presentation,
) *Handler {
	return &Handler{
		catalog:      catalog,
		checkout:     checkout,
		carts:        carts,
		presentation: presentation,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/medicines", h.listMedicines)
		v1.POST("/medicines", h.upsertMedicine)
		v1.PUT("/medicines/:id", h.updateMedicine)
		v1.DELETE("/medicines/:id", h.deleteMedicine)
		v1.GET("/medicines/:id/stock", h.stockProbe)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addToCart)
		v1.PATCH("/cart/items/:id", h.setCartQuantity)
		v1.DELETE("/cart/items/:id", h.removeFromCart)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkoutCart)

		v1.GET("/sales", h.listSales)
		v1.GET("/sales/:id", h.getSale)
		v1.GET("/sales/:id/invoice", h.downloadInvoice)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// operatorID identifies the cart-owning operator; carts are never
// shared between operators
func operatorID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-Operator-ID")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing X-Operator-ID header",
		})
		return "", false
	}
	return id, true
}

func (h *Handler) listMedicines(c *gin.Context) {
	medicines, err := h.catalog.ListMedicines(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": medicines})
}

func (h *Handler) upsertMedicine(c *gin.Context) {
	var m models.Medicine
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	saved, err := h.catalog.UpsertMedicine(c.Request.Context(), &m)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) updateMedicine(c *gin.Context) {
	var m models.Medicine
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	m.ID = c.Param("id")

	saved, err := h.catalog.UpsertMedicine(c.Request.Context(), &m)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) deleteMedicine(c *gin.Context) {
	if err := h.catalog.DeleteMedicine(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) stockProbe(c *gin.Context) {
	quantity, err := h.catalog.StockProbe(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"medicine_id": c.Param("id"),
		"quantity":    quantity,
	})
}

func (h *Handler) getCart(c *gin.Context) {
	operator, ok := operatorID(c)
	if !ok {
		return
	}
	crt := h.carts.Get(operator)
	c.JSON(http.StatusOK, gin.H{
		"lines": crt.Lines(),
		"total": crt.Total(),
	})
}

type addToCartRequest struct {
	MedicineID string `json:"medicine_id" binding:"required"`
}

func (h *Handler) addToCart(c *gin.Context) {
	operator, ok := operatorID(c)
	if !ok {
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	med, err := h.catalog.GetMedicine(c.Request.Context(), req.MedicineID)
	if err != nil {
		respondError(c, err)
		return
	}

	crt := h.carts.Get(operator)
	crt.Add(med)
	c.JSON(http.StatusOK, gin.H{
		"lines": crt.Lines(),
		"total": crt.Total(),
	})
}

// Quantity of zero or less is a no-op handled by the cart.
type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) setCartQuantity(c *gin.Context) {
	operator, ok := operatorID(c)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	crt := h.carts.Get(operator)
	if med, err := h.catalog.GetMedicine(c.Request.Context(), c.Param("id")); err == nil {
		crt.ObserveStock(med.ID, med.Quantity)
	}
	crt.SetQuantity(c.Param("id"), req.Quantity)
	c.JSON(http.StatusOK, gin.H{
		"lines": crt.Lines(),
		"total": crt.Total(),
	})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	operator, ok := operatorID(c)
	if !ok {
		return
	}
	crt := h.carts.Get(operator)
	crt.Remove(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"lines": crt.Lines(),
		"total": crt.Total(),
	})
}

func (h *Handler) clearCart(c *gin.Context) {
	operator, ok := operatorID(c)
	if !ok {
		return
	}
	h.carts.Get(operator).Clear()
	c.Status(http.StatusNoContent)
}

func (h *Handler) checkoutCart(c *gin.Context) {
	operator, ok := operatorID(c)
	if !ok {
		return
	}

	crt := h.carts.Get(operator)
	sale, warning, err := h.checkout.Checkout(
		c.Request.Context(), crt, operator, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondCheckoutError(c, err, warning)
		return
	}

	// The cart is cleared only once the sale is durable.
	crt.Clear()

	resp := gin.H{"sale": sale}
	if warning != nil {
		resp["warning"] = warning.Error()
		resp["stock_changed"] = warning.Items
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) listSales(c *gin.Context) {
	sales, err := h.checkout.ListSales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (h *Handler) getSale(c *gin.Context) {
	sale, err := h.checkout.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) downloadInvoice(c *gin.Context) {
	sale, err := h.checkout.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	document := invoice.Render(sale, h.presentation)
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", invoice.Filename(sale)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", document)
}

// respondError maps the error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var validation *models.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPersistence):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// respondCheckoutError adds the retry hint and any stock-changed
// detail; the cart is preserved on every failure path
func respondCheckoutError(c *gin.Context, err error, warning *models.StockChangedWarning) {
	resp := gin.H{"error": err.Error()}
	if warning != nil {
		resp["stock_changed"] = warning.Items
	}

	switch {
	case errors.Is(err, models.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, models.ErrInsufficientStock):
		resp["retryable"] = true
		c.JSON(http.StatusConflict, resp)
	case errors.Is(err, models.ErrPersistence):
		resp["retryable"] = true
		c.JSON(http.StatusServiceUnavailable, resp)
	default:
		c.JSON(http.StatusInternalServerError, resp)
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
