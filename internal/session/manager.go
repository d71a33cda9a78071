package session

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	AccessCookie = "accessToken"
	DefaultName  = "storefront-session"

	contextKey = "session_state"
	payloadKey = "state"
)

// payload is the part of State kept in the cookie session; identity travels
// separately in the signed access token.
type payload struct {
	Cart   map[uint]int
	Signup *Signup
}

func init() {
	gob.Register(payload{})
}

type Manager struct {
	Store     sessions.Store
	Name      string
	JWTSecret []byte
	AccessTTL time.Duration
	Secure    bool
}

func NewManager(sessionKey, jwtSecret []byte, accessTTL time.Duration, secure bool) *Manager {
	store := sessions.NewCookieStore(sessionKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		Store:     store,
		Name:      DefaultName,
		JWTSecret: jwtSecret,
		AccessTTL: accessTTL,
		Secure:    secure,
	}
}

// Load rebuilds the caller's State from the request cookies. Unreadable
// cookies degrade to an anonymous, empty state.
func (m *Manager) Load(c echo.Context) *State {
	l := logging.FromContext(c.Request().Context()).With("svc", "session.load")
	st := NewState()

	sess, err := m.Store.Get(c.Request(), m.Name)
	if err != nil {
		l.Warn("session_decode_failed", "error", err)
	}
	if sess != nil {
		if p, ok := sess.Values[payloadKey].(payload); ok {
			if p.Cart != nil {
				st.Cart = p.Cart
			}
			st.Signup = p.Signup
		}
	}

	ck, err := c.Cookie(AccessCookie)
	if err != nil || ck.Value == "" {
		return st
	}
	claims, err := tokens.AccessClaimsFromToken(ck.Value, m.JWTSecret)
	if err != nil {
		l.Warn("access_token_rejected", "error", err)
		m.clearAccessCookie(c)
		return st
	}
	userID, err := claims.UserID()
	if err != nil {
		m.clearAccessCookie(c)
		return st
	}
	st.Identity = &Identity{UserID: userID, Email: claims.Email, Role: claims.Role}
	return st
}

// Save persists the cart and signup parts of st. It must run before the
// response body is written.
func (m *Manager) Save(c echo.Context, st *State) error {
	sess, err := m.Store.Get(c.Request(), m.Name)
	if err != nil && sess == nil {
		return err
	}
	sess.Values[payloadKey] = payload{Cart: st.Cart, Signup: st.Signup}
	return sess.Save(c.Request(), c.Response())
}

// SignIn attaches id to the session and issues its access token cookie.
func (m *Manager) SignIn(c echo.Context, st *State, id Identity) error {
	exp := time.Now().Add(m.AccessTTL)
	token, err := tokens.CreateAccessToken(m.JWTSecret, id.UserID, id.Email, id.Role, exp)
	if err != nil {
		return err
	}
	c.SetCookie(m.accessCookie(token, exp))
	st.Identity = &id
	st.Signup = nil
	return m.Save(c, st)
}

// SignOut drops identity, cart and signup progress.
func (m *Manager) SignOut(c echo.Context, st *State) error {
	m.clearAccessCookie(c)
	st.Reset()
	return m.Save(c, st)
}

func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(contextKey, m.Load(c))
			return next(c)
		}
	}
}

// FromContext returns the State loaded by Middleware, or a fresh anonymous one.
func FromContext(c echo.Context) *State {
	if st, ok := c.Get(contextKey).(*State); ok && st != nil {
		return st
	}
	st := NewState()
	c.Set(contextKey, st)
	return st
}
