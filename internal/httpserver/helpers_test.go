package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mailer"
	"github.com/Skotchmaster/storefront/internal/media"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
)

const (
	adminEmail    = "admin@shop.local"
	adminPassword = "admin123"
	testOrigin    = "http://example.com"
)

type testApp struct {
	e    *echo.Echo
	repo *repo.GormRepo
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	gdb := dbtest.InitTestDB(t)
	_, err := db.SeedAdmin(context.Background(), gdb, adminEmail, adminPassword)
	require.NoError(t, err)

	r := &repo.GormRepo{DB: gdb}
	sessions := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), []byte("test-jwt-secret"), time.Hour, false)
	pub := events.Nop{}
	uploads := t.TempDir()

	cartSvc := &service.CartService{Products: r}
	catalog := &service.CatalogService{
		Repo:   r,
		Images: media.NewStore(uploads, "/static/uploads"),
		Events: pub,
	}

	deps := &Deps{
		Storefront: &StorefrontHTTP{Catalog: catalog, Cart: cartSvc, Sessions: sessions},
		Auth: &AuthHTTP{
			Svc: &service.AuthService{
				Users:  r,
				OTP:    &service.OTPService{Repo: r, Mailer: mailer.Disabled{}},
				Events: pub,
			},
			Sessions: sessions,
			EchoOTP:  true,
		},
		Catalog: &CatalogHTTP{Svc: catalog},
		Cart: &CartHTTP{
			Cart:        cartSvc,
			CheckoutSvc: &service.CheckoutService{Cart: cartSvc, PayeeVPA: "shop@upi", PayeeName: "Shop", Events: pub},
			Sessions:    sessions,
		},
		Account: &AccountHTTP{
			Addresses: &service.AddressService{Repo: r},
			Orders:    &service.OrderService{Repo: r},
		},
		Sessions:  sessions,
		CSRF:      csrf.Config{EnforceSameOrigin: true},
		UploadDir: uploads,
	}

	logger := logging.NewWithWriter(io.Discard, "error")
	return &testApp{e: New(logger, deps), repo: r}
}

// client is a minimal browser: it keeps cookies and echoes the CSRF token.
type client struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	cl.t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	if method != http.MethodGet {
		req.Header.Set("Origin", testOrigin)
		if ck, ok := cl.cookies["XSRF-TOKEN"]; ok {
			req.Header.Set("X-CSRF-Token", ck.Value)
		}
	}

	rec := httptest.NewRecorder()
	cl.app.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(cl.cookies, ck.Name)
			continue
		}
		cl.cookies[ck.Name] = ck
	}
	return rec
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(http.MethodGet, path, nil, "")
}

func (cl *client) postJSON(path string, v any) *httptest.ResponseRecorder {
	cl.t.Helper()
	b, err := json.Marshal(v)
	require.NoError(cl.t, err)
	return cl.do(http.MethodPost, path, bytes.NewReader(b), echo.MIMEApplicationJSON)
}

func (cl *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	return cl.do(http.MethodPost, path, bytes.NewBufferString(form.Encode()), echo.MIMEApplicationForm)
}

func (cl *client) postMultipart(path string, fields map[string]string, fileField, fileName string, file []byte) *httptest.ResponseRecorder {
	cl.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(cl.t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(cl.t, err)
		_, err = fw.Write(file)
		require.NoError(cl.t, err)
	}
	require.NoError(cl.t, w.Close())
	return cl.do(http.MethodPost, path, &buf, w.FormDataContentType())
}

// prime performs a GET so the CSRF cookie exists before unsafe requests.
func (cl *client) prime() {
	cl.t.Helper()
	require.Equal(cl.t, http.StatusOK, cl.get("/health/live").Code)
}

func (cl *client) login(email, password string) {
	cl.t.Helper()
	cl.prime()
	rec := cl.postJSON("/login", map[string]string{"email": email, "password": password})
	require.Equal(cl.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
