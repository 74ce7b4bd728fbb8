package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type orderHandler struct {
	orders orderService
}

func (h *orderHandler) list(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), handleFrom(c).User.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "results": orders})
}

func (h *orderHandler) get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), handleFrom(c).User.ID, c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
