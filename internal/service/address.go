package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type AddressService struct {
	Repo AddressRepo
}

func (s *AddressService) List(ctx context.Context, userID uint) ([]models.Address, error) {
	return s.Repo.ListAddresses(ctx, userID)
}

func (s *AddressService) Add(ctx context.Context, userID uint, label, address, phone string) (*models.Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("address is required: %w", ErrValidation)
	}

	a := models.Address{
		UserID:  userID,
		Label:   strings.TrimSpace(label),
		Address: address,
		Phone:   strings.TrimSpace(phone),
	}
	if err := s.Repo.CreateAddress(ctx, &a); err != nil {
		logging.FromContext(ctx).Error("address_create_error", "status", 500, "error", err)
		return nil, err
	}
	return &a, nil
}

func (s *AddressService) Delete(ctx context.Context, userID, id uint) error {
	err := s.Repo.DeleteAddress(ctx, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("address %d: %w", id, ErrNotFound)
	}
	return err
}

type OrderService struct {
	Repo OrderRepo
}

// List returns the user's orders, newest first. Nothing in the request flow
// writes orders, so this is normally empty.
func (s *OrderService) List(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, userID)
}
