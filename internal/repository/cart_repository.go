package repository

import (
	"context"

	"github.com/onemedi/onemedi-api/internal/domain"
)

// CartRepository defines the interface for regular (non-prescription) cart
// data operations. Consumers define this interface, not the MongoDB
// implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	AddItem(ctx context.Context, userID string, item domain.RegularItem) error
	UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	SaveForLater(ctx context.Context, userID, itemID string) error
	MoveToCart(ctx context.Context, userID, itemID string) error
	RemoveSavedItem(ctx context.Context, userID, itemID string) error
	ClearActiveItems(ctx context.Context, userID string) error
	DeleteCart(ctx context.Context, userID string) error
}
