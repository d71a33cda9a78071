package session

import (
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Identity is the authenticated user of a session.
type Identity struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// Signup holds the email a code was sent to, between "send code" and "verify".
type Signup struct {
	Email  string
	SentAt time.Time
}

// State is everything a handler may know about the caller. A nil Identity
// means the session is anonymous.
type State struct {
	Identity *Identity
	Cart     map[uint]int
	Signup   *Signup
}

func NewState() *State {
	return &State{Cart: make(map[uint]int)}
}

func (s *State) Authenticated() bool {
	return s.Identity != nil
}

func (s *State) CartCount() int {
	n := 0
	for _, q := range s.Cart {
		n += q
	}
	return n
}

// Reset returns the state to anonymous with an empty cart.
func (s *State) Reset() {
	s.Identity = nil
	s.Cart = make(map[uint]int)
	s.Signup = nil
}
