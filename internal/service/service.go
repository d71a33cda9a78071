package service

import (
	"context"
	"errors"
	"io"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

var (
	ErrValidation         = errors.New("validation")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrConflict           = errors.New("already exists")
	ErrDuplicateName      = errors.New("product name already exists")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMailDelivery       = errors.New("mail delivery failed")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
}

type OTPRepo interface {
	CreateOTP(ctx context.Context, otp *models.OTP) error
	FindOTPs(ctx context.Context, email, code string) ([]models.OTP, error)
	DeleteOTP(ctx context.Context, id uint) (bool, error)
}

type ProductRepo interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	FindProductByID(ctx context.Context, id uint) (*models.Product, error)
	FindProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	ProductNameExists(ctx context.Context, name string) (bool, error)
	CreateProduct(ctx context.Context, prod *models.Product) error
	DeleteProductByName(ctx context.Context, name string) (*models.Product, error)
	SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error)
}

type AddressRepo interface {
	CreateAddress(ctx context.Context, a *models.Address) error
	ListAddresses(ctx context.Context, userID uint) ([]models.Address, error)
	DeleteAddress(ctx context.Context, userID, id uint) error
}

type OrderRepo interface {
	ListOrders(ctx context.Context, userID uint) ([]models.Order, error)
}

// ImageStore persists uploaded product images.
type ImageStore interface {
	Save(filename string, r io.Reader) (string, error)
	Remove(publicPath string) error
}

// SearchIndex mirrors the catalog into a full-text index.
type SearchIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, q string, from, size int) (int64, []models.Product, error)
}

// publish is fire-and-forget: a broker outage never fails the request.
func publish(ctx context.Context, p events.Publisher, topic, key string, event any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "error", err)
	}
}
