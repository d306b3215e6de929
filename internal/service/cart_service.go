package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/onemedi/onemedi-api/internal/cache"
	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/repository"
)

// CartView is the merged read model of both carts: regular items out of
// MongoDB, prescription items out of Postgres, plus everything derived from
// them on each read. Derived fields are never stored.
type CartView struct {
	Items             []domain.RegularItem      `json:"items"`
	Saved             []domain.RegularItem      `json:"saved"`
	PrescriptionItems []domain.PrescriptionItem `json:"prescription_items"`
	Prescriptions     []domain.PrescriptionInfo `json:"prescriptions"`
	Groups            domain.GroupedCart        `json:"groups"`
	Validation        domain.ValidationResult   `json:"validation"`
	Pricing           domain.PricingSnapshot    `json:"pricing"`
}

// CartService merges the two cart stores behind one API. The regular cart
// document goes through the cache with singleflight collapsing concurrent
// misses; prescription items are always read fresh because their validation
// state can change out from under us.
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	rx    *PrescriptionCartService
	group singleflight.Group
	now   func() time.Time
}

func NewCartService(repo repository.CartRepository, cartCache cache.CartCache, rx *PrescriptionCartService) *CartService {
	return &CartService{
		repo:  repo,
		cache: cartCache,
		rx:    rx,
		now:   time.Now,
	}
}

// GetCart assembles the full merged view for a user. A user with no cart
// document gets an empty view, not an error.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	rxItems, err := s.rx.UserItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos, err := s.rx.CartPrescriptionInfo(ctx, rxItems)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		Items:             cart.Items,
		Saved:             cart.Saved,
		PrescriptionItems: rxItems,
		Prescriptions:     infos,
		Groups:            domain.GroupItems(cart.Items, rxItems),
		Validation:        domain.ValidateCartForCheckout(rxItems, infos, s.now()),
		Pricing:           domain.PriceCart(cart.Items, rxItems),
	}
	return view, nil
}

// loadCart is cache-first with singleflight so a burst of misses for the same
// user produces a single database read.
func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("cart cache get error for user %s: %v", userID, err)
	}

	result, err, _ := s.group.Do(userID, func() (interface{}, error) {
		cart, err := s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return &domain.Cart{UserID: userID}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}

		if err := s.cache.Set(ctx, userID, cart); err != nil {
			log.Printf("cart cache set error for user %s: %v", userID, err)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Cart), nil
}

func (s *CartService) AddItem(ctx context.Context, userID string, item domain.RegularItem) error {
	if !item.ItemKind.Valid() {
		return fmt.Errorf("item kind %q: %w", item.ItemKind, ErrInvalidItemKind)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.AddedAt = s.now()

	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		log.Printf("repo add item error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity < 1 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	if err := s.repo.UpdateItemQuantity(ctx, userID, itemID, quantity); err != nil {
		log.Printf("repo update quantity error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := s.repo.RemoveItem(ctx, userID, itemID); err != nil {
		log.Printf("repo remove item error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) SaveForLater(ctx context.Context, userID, itemID string) error {
	if err := s.repo.SaveForLater(ctx, userID, itemID); err != nil {
		log.Printf("repo save for later error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) MoveToCart(ctx context.Context, userID, itemID string) error {
	if err := s.repo.MoveToCart(ctx, userID, itemID); err != nil {
		log.Printf("repo move to cart error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

func (s *CartService) RemoveSavedItem(ctx context.Context, userID, itemID string) error {
	if err := s.repo.RemoveSavedItem(ctx, userID, itemID); err != nil {
		log.Printf("repo remove saved item error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

// ClearCart empties the active items of both carts. Saved-for-later items
// survive a clear.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.repo.ClearActiveItems(ctx, userID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		log.Printf("repo clear cart error: %v", err)
		return err
	}
	if err := s.rx.ClearUserItems(ctx, userID); err != nil {
		log.Printf("clear prescription items error: %v", err)
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

// ClearAfterOrder is the post-order variant of ClearCart: failures are logged
// and swallowed because the order already exists and must not be rolled back
// over a stale cart.
func (s *CartService) ClearAfterOrder(ctx context.Context, userID string) {
	if err := s.repo.ClearActiveItems(ctx, userID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		log.Printf("post-order cart clear failed for user %s: %v", userID, err)
	}
	if err := s.rx.ClearUserItems(ctx, userID); err != nil {
		log.Printf("post-order prescription clear failed for user %s: %v", userID, err)
	}
	s.invalidateCache(ctx, userID)
}

func (s *CartService) invalidateCache(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cart cache delete error for user %s: %v", userID, err)
	}
}
