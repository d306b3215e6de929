package service

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrCartNotEligible     = errors.New("cart is not eligible for checkout")
	ErrIllegalTransition   = errors.New("illegal transition of checkout status")
	ErrSessionExpired      = errors.New("checkout session has expired")
	ErrSelectionIncomplete = errors.New("delivery address and payment method are required")
	ErrNotSessionOwner     = errors.New("checkout session belongs to another user")
	ErrUnknownPrescription = errors.New("prescription not found for user")
	ErrInvalidItemKind     = errors.New("unknown cart item kind")
)
