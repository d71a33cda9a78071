package transport

import (
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/util"
)

type SignupCodeRequest struct {
	Email string `json:"email" form:"email"`
}

type SignupCodeResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
	// Code is only filled in when OTP_ECHO is on.
	Code string `json:"code,omitempty"`
}

// SignupVerifyRequest may omit Email; the address the code was sent to is
// then taken from the session.
type SignupVerifyRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
	Code     string `json:"code"     form:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type IdentityResponse struct {
	Identity *session.Identity `json:"identity"`
	IsAdmin  bool              `json:"is_admin"`
}

// CartUpdateRequest adds Qty units; a missing Qty means one.
type CartUpdateRequest struct {
	ProductID uint `json:"product_id" form:"product_id"`
	Qty       *int `json:"qty"        form:"qty"`
}

type AddressRequest struct {
	Label   string `json:"label"   form:"label"`
	Address string `json:"address" form:"address"`
	Phone   string `json:"phone"   form:"phone"`
}

type ProductList struct {
	Data []models.Product `json:"data"`
}

type SearchResponse struct {
	Data []models.Product `json:"data"`
	Meta util.Meta        `json:"meta"`
}

// AdminSection is present in the storefront view for admins only.
type AdminSection struct {
	ProductNames []string `json:"product_names"`
}

type StorefrontView struct {
	Identity *session.Identity `json:"identity"`
	Products []models.Product  `json:"products"`
	Cart     *service.CartView `json:"cart"`
	Admin    *AdminSection     `json:"admin,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
