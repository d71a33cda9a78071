package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

// StorefrontHTTP renders the single page every visitor sees. Admins get the
// admin section on the same view instead of a separate flow.
type StorefrontHTTP struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Sessions *session.Manager
}

func (h *StorefrontHTTP) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "storefront.home")
	st := session.FromContext(c)

	products, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		return fail(l, "home_error", err)
	}

	view, err := loadCartView(c, h.Cart, h.Sessions, st)
	if err != nil {
		return fail(l, "home_error", err)
	}

	out := transport.StorefrontView{
		Identity: st.Identity,
		Products: products,
		Cart:     view,
	}
	if st.Identity.IsAdmin() {
		names := make([]string, 0, len(products))
		for _, p := range products {
			names = append(names, p.Name)
		}
		out.Admin = &transport.AdminSection{ProductNames: names}
	}

	return c.JSON(http.StatusOK, out)
}

// loadCartView prices the session cart and drops lines whose product no
// longer exists, persisting the pruned cart.
func loadCartView(c echo.Context, svc *service.CartService, sessions *session.Manager, st *session.State) (*service.CartView, error) {
	ctx := c.Request().Context()

	view, err := svc.View(ctx, st.Cart)
	if err != nil {
		return nil, err
	}
	if len(view.Missing) > 0 {
		pruneCart(c, sessions, st, view.Missing)
	}
	return view, nil
}

func pruneCart(c echo.Context, sessions *session.Manager, st *session.State, missing []uint) {
	service.Cart(st.Cart).Prune(missing)
	if err := sessions.Save(c, st); err != nil {
		logging.FromContext(c.Request().Context()).Warn("session_save_failed", "error", err)
	}
}
