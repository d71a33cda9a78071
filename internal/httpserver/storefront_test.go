package httpserver

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type viewJSON struct {
	Identity *session.Identity       `json:"identity"`
	Products []models.Product        `json:"products"`
	Cart     service.CartView        `json:"cart"`
	Admin    *transport.AdminSection `json:"admin"`
}

type checkoutJSON struct {
	Cart       service.CartView `json:"cart"`
	PaymentURI string           `json:"payment_uri"`
}

func addProduct(t *testing.T, admin *client, name, price string) models.Product {
	t.Helper()
	rec := admin.postMultipart("/admin/products", map[string]string{"name": name, "price": price}, "", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Product](t, rec)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	cl := app.client(t)

	assert.Equal(t, http.StatusOK, cl.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, cl.get("/health/ready").Code)
	assert.Equal(t, http.StatusOK, cl.get("/metrics").Code)
}

func TestHome_AnonymousAndAdminViews(t *testing.T) {
	app := newTestApp(t)

	admin := app.client(t)
	admin.login(adminEmail, adminPassword)
	addProduct(t, admin, "Pen", "10")

	anon := app.client(t)
	v := decode[viewJSON](t, anon.get("/"))
	assert.Nil(t, v.Identity)
	require.Len(t, v.Products, 1)
	assert.Empty(t, v.Cart.Lines)
	assert.Nil(t, v.Admin)

	v = decode[viewJSON](t, admin.get("/"))
	require.NotNil(t, v.Identity)
	assert.Equal(t, models.RoleAdmin, v.Identity.Role)
	require.NotNil(t, v.Admin)
	assert.Equal(t, []string{"Pen"}, v.Admin.ProductNames)
}

func TestSignupFlow(t *testing.T) {
	app := newTestApp(t)
	cl := app.client(t)
	cl.prime()

	rec := cl.postJSON("/signup/code", map[string]string{"email": "New@Shop.io"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode[transport.SignupCodeResponse](t, rec)
	assert.Equal(t, "new@shop.io", sent.Email)
	require.Len(t, sent.Code, 6)

	wrong := "000000"
	if sent.Code == wrong {
		wrong = "111111"
	}
	rec = cl.postJSON("/signup/verify", map[string]string{"password": "secret1", "code": wrong})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// email comes from the session
	rec = cl.postJSON("/signup/verify", map[string]string{"password": "secret1", "code": sent.Code})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	u := decode[map[string]any](t, rec)
	assert.Equal(t, "new@shop.io", u["email"])
	assert.NotContains(t, u, "PasswordHash")

	// still anonymous after signup
	assert.Equal(t, http.StatusUnauthorized, cl.get("/me").Code)

	rec = cl.postJSON("/signup/verify", map[string]string{"email": "new@shop.io", "password": "secret1", "code": sent.Code})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "code is single use")

	rec = cl.postJSON("/signup/code", map[string]string{"email": "new@shop.io"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	cl.login("new@shop.io", "secret1")
	me := decode[transport.IdentityResponse](t, cl.get("/me"))
	require.NotNil(t, me.Identity)
	assert.Equal(t, models.RoleCustomer, me.Identity.Role)
	assert.False(t, me.IsAdmin)
}

func TestSignupVerify_WithoutCode(t *testing.T) {
	app := newTestApp(t)
	cl := app.client(t)
	cl.prime()

	rec := cl.postJSON("/signup/verify", map[string]string{"password": "secret1", "code": "123456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = cl.postForm("/signup/code", url.Values{"email": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)
	cl := app.client(t)
	cl.prime()

	rec := cl.postJSON("/login", map[string]string{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = cl.postJSON("/login", map[string]string{"email": "ghost@shop.local", "password": "admin123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, cl.get("/me").Code)
}

func TestAdminProducts_Gate(t *testing.T) {
	app := newTestApp(t)

	anon := app.client(t)
	anon.prime()
	rec := anon.postMultipart("/admin/products", map[string]string{"name": "Pen", "price": "10"}, "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, app.repo.CreateUser(t.Context(), &models.User{Email: "c@shop.io", PasswordHash: mustHash(t, "secret1"), Role: models.RoleCustomer}))
	customer := app.client(t)
	customer.login("c@shop.io", "secret1")
	rec = customer.postMultipart("/admin/products", map[string]string{"name": "Pen", "price": "10"}, "", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = customer.do(http.MethodDelete, "/admin/products/Pen", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminProducts_AddDuplicateDelete(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t)
	admin.login(adminEmail, adminPassword)

	img := pngBytes(t)
	rec := admin.postMultipart("/admin/products",
		map[string]string{"name": "Pen", "price": "10", "description": "blue ink"},
		"image", "pen.png", img)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pen := decode[models.Product](t, rec)
	require.NotEmpty(t, pen.ImagePath)

	assert.Equal(t, http.StatusOK, admin.get(pen.ImagePath).Code)

	rec = admin.postMultipart("/admin/products", map[string]string{"name": "Pen", "price": "12"}, "", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = admin.postMultipart("/admin/products", map[string]string{"name": "Bad", "price": "-1"}, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.postMultipart("/admin/products", map[string]string{"name": "Bad", "price": "ten"}, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.postMultipart("/admin/products", map[string]string{"name": "Gif", "price": "1"}, "image", "x.gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := decode[transport.ProductList](t, admin.get("/products"))
	require.Len(t, list.Data, 1)
	assert.Equal(t, 10.0, list.Data[0].Price)

	rec = admin.do(http.MethodDelete, "/admin/products/Pen", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = admin.do(http.MethodDelete, "/admin/products/Pen", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusNotFound, admin.get(fmt.Sprintf("/products/%d", pen.ID)).Code)
}

func TestProducts_SearchAndGet(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t)
	admin.login(adminEmail, adminPassword)
	pen := addProduct(t, admin, "Blue Pen", "10")
	addProduct(t, admin, "Notebook", "3.5")

	anon := app.client(t)
	res := decode[transport.SearchResponse](t, anon.get("/products/search?q=pen"))
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Blue Pen", res.Data[0].Name)
	assert.EqualValues(t, 1, res.Meta.Total)

	assert.Equal(t, http.StatusBadRequest, anon.get("/products/search").Code)

	got := decode[models.Product](t, anon.get(fmt.Sprintf("/products/%d", pen.ID)))
	assert.Equal(t, "Blue Pen", got.Name)
	assert.Equal(t, http.StatusBadRequest, anon.get("/products/abc").Code)
}

func TestCart_CheckoutAndDeletedProduct(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t)
	admin.login(adminEmail, adminPassword)
	pen := addProduct(t, admin, "Pen", "10")

	require.NoError(t, app.repo.CreateUser(t.Context(), &models.User{Email: "c@shop.io", PasswordHash: mustHash(t, "secret1"), Role: models.RoleCustomer}))
	cl := app.client(t)
	cl.prime()

	rec := cl.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[service.CartView](t, rec)
	require.Len(t, view.Lines, 1)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(30)))

	// zero is a no-op, missing qty means one, negative is rejected
	rec = cl.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[service.CartView](t, rec).Lines[0].Qty)
	assert.Equal(t, http.StatusBadRequest, cl.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": -1}).Code)
	assert.Equal(t, http.StatusNotFound, cl.postJSON("/cart", map[string]any{"product_id": 999}).Code)

	// checkout needs a login
	assert.Equal(t, http.StatusUnauthorized, cl.postJSON("/cart/checkout", nil).Code)

	cl.login("c@shop.io", "secret1")
	rec = cl.postJSON("/cart/checkout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[checkoutJSON](t, rec)
	assert.Equal(t, "upi://pay?pa=shop@upi&pn=Shop&am=30.00&tn=Payment", sum.PaymentURI)

	rec = cl.get("/cart/checkout/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	// the admin removes the product while it sits in the cart
	require.Equal(t, http.StatusNoContent, admin.do(http.MethodDelete, "/admin/products/Pen", nil, "").Code)

	view = decode[service.CartView](t, cl.get("/cart"))
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
	assert.Equal(t, []uint{pen.ID}, view.Missing)

	// pruned from the session on the first view
	view = decode[service.CartView](t, cl.get("/cart"))
	assert.Empty(t, view.Missing)

	assert.Equal(t, http.StatusBadRequest, cl.postJSON("/cart/checkout", nil).Code)
}

func TestLogout_ClearsIdentityAndCart(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t)
	admin.login(adminEmail, adminPassword)
	pen := addProduct(t, admin, "Pen", "10")

	rec := admin.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = admin.postJSON("/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	v := decode[viewJSON](t, admin.get("/"))
	assert.Nil(t, v.Identity)
	assert.Empty(t, v.Cart.Lines)
	assert.Nil(t, v.Admin)
	assert.Equal(t, http.StatusUnauthorized, admin.get("/me").Code)
}

func TestCSRF_RejectsMissingToken(t *testing.T) {
	app := newTestApp(t)
	cl := app.client(t)

	rec := cl.postJSON("/login", map[string]string{"email": adminEmail, "password": adminPassword})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAddressesAndOrders(t *testing.T) {
	app := newTestApp(t)
	cl := app.client(t)

	assert.Equal(t, http.StatusUnauthorized, cl.get("/addresses").Code)

	cl.login(adminEmail, adminPassword)
	rec := cl.postJSON("/addresses", map[string]string{"label": "Home", "address": "12 Main St", "phone": "555"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	a := decode[models.Address](t, rec)

	assert.Equal(t, http.StatusBadRequest, cl.postJSON("/addresses", map[string]string{"label": "Empty"}).Code)

	list := decode[[]models.Address](t, cl.get("/addresses"))
	require.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, cl.do(http.MethodDelete, fmt.Sprintf("/addresses/%d", a.ID), nil, "").Code)
	assert.Equal(t, http.StatusNotFound, cl.do(http.MethodDelete, fmt.Sprintf("/addresses/%d", a.ID), nil, "").Code)

	orders := decode[[]models.Order](t, cl.get("/orders"))
	assert.Empty(t, orders)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := hash.HashPassword(password)
	require.NoError(t, err)
	return h
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))))
	return buf.Bytes()
}

func TestCheckoutQR_PrunesDeletedProducts(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t)
	admin.login(adminEmail, adminPassword)
	pen := addProduct(t, admin, "Pen", "10")
	book := addProduct(t, admin, "Book", "5")

	cl := app.client(t)
	cl.login(adminEmail, adminPassword)
	require.Equal(t, http.StatusOK, cl.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": 1}).Code)
	require.Equal(t, http.StatusOK, cl.postJSON("/cart", map[string]any{"product_id": book.ID, "qty": 2}).Code)

	require.Equal(t, http.StatusNoContent, admin.do(http.MethodDelete, "/admin/products/Pen", nil, "").Code)

	rec := cl.get("/cart/checkout/qr")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	// the QR request already dropped the stale line from the session
	view := decode[service.CartView](t, cl.get("/cart"))
	assert.Empty(t, view.Missing)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, book.ID, view.Lines[0].ProductID)
}

func TestCart_RejectsOversizedQuantity(t *testing.T) {
	app := newTestApp(t)
	admin := app.client(t)
	admin.login(adminEmail, adminPassword)
	pen := addProduct(t, admin, "Pen", "10")

	rec := admin.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": service.MaxLineQty})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = admin.postJSON("/cart", map[string]any{"product_id": pen.ID, "qty": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	view := decode[service.CartView](t, admin.get("/cart"))
	require.Len(t, view.Lines, 1)
	assert.Equal(t, service.MaxLineQty, view.Lines[0].Qty)
	assert.True(t, view.Total.IsPositive())
}
