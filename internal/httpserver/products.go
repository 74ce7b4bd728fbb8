package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"storefront-sync/internal/catalog"
	"storefront-sync/internal/domain"

	"github.com/gin-gonic/gin"
)

type productHandler struct {
	catalog catalogService
}

// list serves the catalog narrowed by q, category (repeatable or comma
// separated), minPrice and maxPrice.
func (h *productHandler) list(c *gin.Context) {
	criteria, err := parseCriteria(c)
	if err != nil {
		writeError(c, err)
		return
	}
	products, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	results := catalog.Filter(products, criteria)
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

func (h *productHandler) categories(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *productHandler) get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		writeBadRequest(c, "id", "must be a positive integer")
		return
	}
	p, err := h.catalog.Product(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func parseCriteria(c *gin.Context) (catalog.Criteria, error) {
	criteria := catalog.Criteria{
		Search: c.Query("q"),
		Price:  catalog.DefaultPriceRange,
	}
	for _, raw := range c.QueryArray("category") {
		for _, cat := range strings.Split(raw, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				criteria.Categories = append(criteria.Categories, cat)
			}
		}
	}

	fields := map[string]string{}
	if v := c.Query("minPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			fields["minPrice"] = "must be a non-negative number"
		} else {
			criteria.Price.Min = f
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			fields["maxPrice"] = "must be a non-negative number"
		} else {
			criteria.Price.Max = f
		}
	}
	if len(fields) == 0 && criteria.Price.Min > criteria.Price.Max {
		fields["minPrice"] = "must not exceed maxPrice"
	}
	if len(fields) > 0 {
		return catalog.Criteria{}, domain.Invalid("httpserver.products", fields)
	}
	return criteria, nil
}
