package product

import (
	"log/slog"
	"net/http"
	"strconv"

	catalogsvc "github.com/Az-source-create/tillgng-2/service/catalog"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc catalogsvc.Service
	Log *slog.Logger
}

// GET /v1/products
func (h *Controller) List(c echo.Context) error {
	q := catalogsvc.Query{
		Limit:        intQuery(c, "limit"),
		Page:         intQuery(c, "page"),
		Search:       c.QueryParam("search"),
		ForceRefresh: c.QueryParam("refresh") == "true",
	}

	res := h.Svc.FetchProducts(c.Request().Context(), q)
	if res.Err != "" {
		// page still renders, with a message instead of products
		h.Log.Warn("product page degraded", "page", q.Page, "msg", res.Err)
	}
	return c.JSON(http.StatusOK, res)
}

func intQuery(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 0 {
		return 0 // service applies its defaults
	}
	return n
}
