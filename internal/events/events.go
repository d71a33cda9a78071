// Package events defines the storefront domain events and their transport.
package events

import "time"

const (
	TopicUsers    = "storefront.users"
	TopicProducts = "storefront.products"
	TopicCheckout = "storefront.checkout"
)

const (
	TypeUserSignedUp      = "user_signed_up"
	TypeProductCreated    = "product_created"
	TypeProductDeleted    = "product_deleted"
	TypeCheckoutRequested = "checkout_requested"
)

type UserSignedUp struct {
	Type   string    `json:"type"`
	UserID uint      `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

type ProductChanged struct {
	Type      string    `json:"type"`
	ProductID uint      `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price,omitempty"`
	At        time.Time `json:"at"`
}

type CheckoutRequested struct {
	Type   string       `json:"type"`
	UserID uint         `json:"user_id"`
	Items  map[uint]int `json:"items"`
	Total  string       `json:"total"`
	At     time.Time    `json:"at"`
}
