package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AccountHTTP struct {
	Addresses *service.AddressService
	Orders    *service.OrderService
}

func (h *AccountHTTP) ListAddresses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.list_addresses")
	st := session.FromContext(c)

	items, err := h.Addresses.List(ctx, st.Identity.UserID)
	if err != nil {
		return fail(l, "list_addresses_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AccountHTTP) AddAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.add_address")
	st := session.FromContext(c)

	var req transport.AddressRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_address_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	a, err := h.Addresses.Add(ctx, st.Identity.UserID, req.Label, req.Address, req.Phone)
	if err != nil {
		return fail(l, "add_address_error", err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AccountHTTP) DeleteAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.delete_address")
	st := session.FromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		l.Warn("delete_address_error", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	if err := h.Addresses.Delete(ctx, st.Identity.UserID, uint(id)); err != nil {
		return fail(l, "delete_address_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.list_orders")
	st := session.FromContext(c)

	orders, err := h.Orders.List(ctx, st.Identity.UserID)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}
