package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
)

type orderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type createOrderRequest struct {
	Items                []orderItemRequest `json:"order_items" binding:"required,dive"`
	ShippingAddressLine1 string             `json:"shipping_address_line1" binding:"required"`
	ShippingAddressLine2 string             `json:"shipping_address_line2"`
	ShippingCity         string             `json:"shipping_city" binding:"required"`
	ShippingState        string             `json:"shipping_state" binding:"required"`
	ShippingPostalCode   string             `json:"shipping_postal_code" binding:"required"`
	ShippingCountry      string             `json:"shipping_country" binding:"required"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]models.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, models.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	user := currentUser(c)
	order, err := s.orders.PlaceOrder(c.Request.Context(), user.ID, service.ShippingAddress{
		Line1:      req.ShippingAddressLine1,
		Line2:      req.ShippingAddressLine2,
		City:       req.ShippingCity,
		State:      req.ShippingState,
		PostalCode: req.ShippingPostalCode,
		Country:    req.ShippingCountry,
	}, lines)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (s *Server) myOrders(c *gin.Context) {
	offset, limit := parsePagination(c)
	user := currentUser(c)

	orders, err := s.orders.ListUserOrders(c.Request.Context(), user.ID, offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) userStatistics(c *gin.Context) {
	user := currentUser(c)

	stats, err := s.orders.UserStats(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user := currentUser(c)
	order, err := s.orders.GetOrder(c.Request.Context(), id, user.ID, user.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user := currentUser(c)
	if err := s.orders.DeleteOrder(c.Request.Context(), id, user.ID, user.IsAdmin()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

func (s *Server) listOrders(c *gin.Context) {
	offset, limit := parsePagination(c)
	filter, err := parseOrderFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	orders, err := s.orders.ListOrders(c.Request.Context(), filter, offset, limit, user.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) platformStatistics(c *gin.Context) {
	stats, err := s.orders.PlatformStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	order, err := s.orders.UpdateOrderStatus(c.Request.Context(), id, req.Status, user.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) stockCheck(c *gin.Context) {
	filter := service.StockFilter{Category: c.Query("category")}
	if v := c.Query("min_stock"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_stock must be an integer"})
			return
		}
		filter.MinStock = &parsed
	}
	if v := c.Query("max_stock"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_stock must be an integer"})
			return
		}
		filter.MaxStock = &parsed
	}

	report, err := s.orders.StockHealth(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseOrderFilter(c *gin.Context) (models.OrderFilter, error) {
	filter := models.OrderFilter{Status: c.Query("status")}

	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return filter, err
		}
		filter.UserID = uint(id)
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}
	if v := c.Query("min_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, err
		}
		filter.MinAmount = &amount
	}
	if v := c.Query("max_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, err
		}
		filter.MaxAmount = &amount
	}
	return filter, nil
}
