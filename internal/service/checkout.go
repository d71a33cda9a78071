package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/upi"
)

type CheckoutService struct {
	Cart      *CartService
	PayeeVPA  string
	PayeeName string
	Events    events.Publisher
}

type CheckoutSummary struct {
	Cart *CartView `json:"cart"`
	// PaymentURI is empty when no payee address is configured.
	PaymentURI string `json:"payment_uri,omitempty"`
}

// summarize prices the cart and builds the UPI link for its total. It has
// no side effects.
func (s *CheckoutService) summarize(ctx context.Context, cart Cart) (*CheckoutSummary, error) {
	view, err := s.Cart.View(ctx, cart)
	if err != nil {
		return nil, err
	}
	if view.Empty() {
		return nil, ErrEmptyCart
	}

	sum := &CheckoutSummary{Cart: view}
	if s.PayeeVPA != "" {
		sum.PaymentURI = upi.BuildURI(s.PayeeVPA, s.PayeeName, view.Total, upi.DefaultNote)
	}
	return sum, nil
}

// Checkout records a checkout request and returns its summary. Nothing is
// persisted: payment happens out of band.
func (s *CheckoutService) Checkout(ctx context.Context, userID uint, cart Cart) (*CheckoutSummary, error) {
	l := logging.FromContext(ctx).With("svc", "checkout")

	sum, err := s.summarize(ctx, cart)
	if err != nil {
		return nil, err
	}
	if sum.PaymentURI == "" {
		l.Warn("checkout_without_payee", "reason", "UPI_VPA not set")
	}

	items := make(map[uint]int, len(sum.Cart.Lines))
	for _, line := range sum.Cart.Lines {
		items[line.ProductID] = line.Qty
	}

	metrics.CheckoutsTotal.Inc()
	publish(ctx, s.Events, events.TopicCheckout, fmt.Sprint(userID), events.CheckoutRequested{
		Type:   events.TypeCheckoutRequested,
		UserID: userID,
		Items:  items,
		Total:  sum.Cart.Total.StringFixed(2),
		At:     time.Now().UTC(),
	})

	l.Info("checkout_requested", "user_id", userID, "total", sum.Cart.Total.StringFixed(2))
	return sum, nil
}

// QR renders the payment link of the cart as PNG. It does not count as a
// checkout. The priced view is returned so callers can prune missing lines.
func (s *CheckoutService) QR(ctx context.Context, cart Cart, size int) ([]byte, *CartView, error) {
	sum, err := s.summarize(ctx, cart)
	if err != nil {
		return nil, nil, err
	}
	if sum.PaymentURI == "" {
		return nil, sum.Cart, fmt.Errorf("no payee configured: %w", ErrNotFound)
	}
	png, err := upi.RenderQR(sum.PaymentURI, size)
	if err != nil {
		return nil, sum.Cart, err
	}
	return png, sum.Cart, nil
}
