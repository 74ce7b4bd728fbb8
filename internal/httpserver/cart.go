package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type addLineRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type cartHandler struct {
	catalog catalogService
}

func (h *cartHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, handleFrom(c).Cart.Snapshot())
}

// addLine looks the product up in the catalog and adds it with the requested
// quantity (default 1).
func (h *cartHandler) addLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "body", "invalid JSON payload")
		return
	}
	if req.ProductID <= 0 {
		writeBadRequest(c, "productId", "must be a positive integer")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	product, err := h.catalog.Product(c.Request.Context(), req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}

	cart := handleFrom(c).Cart
	line, err := cart.AddLine(c.Request.Context(), *product, req.Quantity)
	respond(c, http.StatusCreated, gin.H{"line": line, "cart": cart.Snapshot()}, err)
}

func (h *cartHandler) changeQuantity(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	var req changeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "body", "invalid JSON payload")
		return
	}
	cart := handleFrom(c).Cart
	line, err := cart.ChangeQuantity(c.Request.Context(), productID, req.Delta)
	respond(c, http.StatusOK, gin.H{"line": line, "removed": line == nil, "cart": cart.Snapshot()}, err)
}

func (h *cartHandler) removeLine(c *gin.Context) {
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	cart := handleFrom(c).Cart
	err := cart.RemoveLine(c.Request.Context(), productID)
	respond(c, http.StatusOK, gin.H{"cart": cart.Snapshot()}, err)
}

func (h *cartHandler) reload(c *gin.Context) {
	handle := handleFrom(c)
	err := handle.Cart.LoadForSession(c.Request.Context(), handle.User.ID)
	respond(c, http.StatusOK, gin.H{"cart": handle.Cart.Snapshot()}, err)
}

func productIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("productId"))
	if err != nil || id <= 0 {
		writeBadRequest(c, "productId", "must be a positive integer")
		return 0, false
	}
	return id, true
}
