package httpserver

import (
	"net/http"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type checkoutHandler struct {
	sessions sessionService
}

func (h *checkoutHandler) get(c *gin.Context) {
	o := handleFrom(c).Checkout()
	if o == nil {
		c.JSON(http.StatusOK, gin.H{"state": checkout.StateIdle})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": o.State(), "order": o.Order()})
}

func (h *checkoutHandler) begin(c *gin.Context) {
	o, err := h.sessions.BeginCheckout(c.Request.Context(), handleFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": o.State()})
}

func (h *checkoutHandler) getAddress(c *gin.Context) {
	addr, err := handleFrom(c).Cart.LoadAddress(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"address": addr}, err)
}

// putAddress validates and saves the address form, opening a checkout first
// when none is in progress.
func (h *checkoutHandler) putAddress(c *gin.Context) {
	var form checkout.AddressForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeBadRequest(c, "body", "invalid JSON payload")
		return
	}
	handle := handleFrom(c)
	o := handle.Checkout()
	if o == nil || o.State() == checkout.StateConfirmed {
		var err error
		if o, err = h.sessions.BeginCheckout(c.Request.Context(), handle); err != nil {
			writeError(c, err)
			return
		}
	}
	addr, err := o.EditAddress(c.Request.Context(), form)
	respond(c, http.StatusOK, gin.H{"state": o.State(), "address": addr}, err)
}

func (h *checkoutHandler) confirm(c *gin.Context) {
	o := handleFrom(c).Checkout()
	if o == nil {
		writeError(c, domain.Invalid("httpserver.confirm", map[string]string{"state": "no checkout in progress"}))
		return
	}
	order, err := o.Confirm(c.Request.Context())
	if order == nil {
		writeError(c, err)
		return
	}
	body := gin.H{"state": o.State(), "order": order}
	if err != nil {
		// The order is stored; clearing the cart did not fully succeed.
		requestLogger(c).WithError(err).WithField("order_id", order.OrderID).Warn("order confirmed with cart cleanup failure")
		body["warnings"] = warnings(err)
	}
	c.JSON(http.StatusCreated, body)
}
