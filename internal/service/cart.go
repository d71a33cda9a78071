package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// MaxLineQty bounds the quantity of a single cart line.
const MaxLineQty = 1 << 20

// Cart maps product id to quantity.
type Cart map[uint]int

type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Lines   []CartLine      `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Missing []uint          `json:"missing,omitempty"`
}

func (v *CartView) Empty() bool {
	return len(v.Lines) == 0
}

type CartService struct {
	Products ProductRepo
}

// Update adds qty units of a product. Zero is a no-op and never removes a line.
func (s *CartService) Update(ctx context.Context, cart Cart, productID uint, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity cannot be negative: %w", ErrValidation)
	}
	if qty == 0 {
		return nil
	}
	if qty > MaxLineQty-cart[productID] {
		return fmt.Errorf("quantity exceeds %d per product: %w", MaxLineQty, ErrValidation)
	}

	if _, err := s.Products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return err
	}

	cart[productID] += qty
	return nil
}

// View prices the cart at current catalog prices. Lines whose product has
// been deleted are left out of the total and listed in Missing.
func (s *CartService) View(ctx context.Context, cart Cart) (*CartView, error) {
	view := &CartView{Lines: []CartLine{}, Total: decimal.Zero}
	if len(cart) == 0 {
		return view, nil
	}

	ids := make([]uint, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	prods, err := s.Products.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[uint]models.Product, len(prods))
	for _, p := range prods {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			view.Missing = append(view.Missing, id)
			continue
		}
		qty := cart[id]
		price := decimal.NewFromFloat(p.Price)
		sub := price.Mul(decimal.NewFromInt(int64(qty)))
		view.Lines = append(view.Lines, CartLine{
			ProductID: id,
			Name:      p.Name,
			Price:     price,
			Qty:       qty,
			Subtotal:  sub,
		})
		view.Total = view.Total.Add(sub)
	}

	if len(view.Missing) > 0 {
		logging.FromContext(ctx).Info("cart_lines_dropped", "missing", view.Missing)
	}
	return view, nil
}

// Prune removes the given product ids from the cart.
func (c Cart) Prune(ids []uint) {
	for _, id := range ids {
		delete(c, id)
	}
}
