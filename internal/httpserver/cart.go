package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/upi"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CartHTTP struct {
	Cart        *service.CartService
	CheckoutSvc *service.CheckoutService
	Sessions    *session.Manager
}

func (h *CartHTTP) View(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view")
	st := session.FromContext(c)

	view, err := loadCartView(c, h.Cart, h.Sessions, st)
	if err != nil {
		return fail(l, "cart_view_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")
	st := session.FromContext(c)

	var req transport.CartUpdateRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("cart_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	qty := 1
	if req.Qty != nil {
		qty = *req.Qty
	}

	if err := h.Cart.Update(ctx, st.Cart, req.ProductID, qty); err != nil {
		return fail(l, "cart_update_error", err)
	}
	if err := h.Sessions.Save(c, st); err != nil {
		return fail(l, "cart_update_error", err)
	}

	view, err := h.Cart.View(ctx, st.Cart)
	if err != nil {
		return fail(l, "cart_update_error", err)
	}

	l.Info("cart_updated", "product_id", req.ProductID, "qty", qty)
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")
	st := session.FromContext(c)

	sum, err := h.CheckoutSvc.Checkout(ctx, st.Identity.UserID, st.Cart)
	if err != nil {
		return fail(l, "checkout_error", err)
	}
	if len(sum.Cart.Missing) > 0 {
		pruneCart(c, h.Sessions, st, sum.Cart.Missing)
	}

	return c.JSON(http.StatusOK, sum)
}

func (h *CartHTTP) CheckoutQR(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout_qr")
	st := session.FromContext(c)

	size := util.ParseIntDefault(c.QueryParam("size"), upi.DefaultQRSize)
	if size < 64 || size > 1024 {
		size = upi.DefaultQRSize
	}

	png, view, err := h.CheckoutSvc.QR(ctx, st.Cart, size)
	if view != nil && len(view.Missing) > 0 {
		pruneCart(c, h.Sessions, st, view.Missing)
	}
	if err != nil {
		return fail(l, "checkout_qr_error", err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
