package types

import "fmt"

// Error codes surfaced to API clients. Handlers map these to HTTP statuses.
const (
	ErrCodeTournamentNotFound     = "tournament_not_found"
	ErrCodeEventNotFound          = "event_not_found"
	ErrCodeCategoryNotFound       = "category_not_found"
	ErrCodeCategoryEventMismatch  = "category_event_mismatch"
	ErrCodeCategoryNotPurchasable = "category_not_purchasable"
	ErrCodeInsufficientSeats      = "insufficient_seats"
	ErrCodeOrderNotFound          = "order_not_found"
	ErrCodeInvalidStatus          = "invalid_status"
	ErrCodeValidation             = "validation_error"
	ErrCodeFrozenField            = "frozen_field"
	ErrCodeAppendOnly             = "append_only"
)

// ServiceError is a typed failure carrying a machine-readable code and
// kind-specific details for the HTTP layer.
type ServiceError struct {
	Code    string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewServiceError(code, message string, details map[string]any) *ServiceError {
	return &ServiceError{Code: code, Message: message, Details: details}
}

func TournamentNotFoundError(tournamentId uint) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeTournamentNotFound,
		Message: fmt.Sprintf("Tournament with ID %d not found or not active.", tournamentId),
		Details: map[string]any{"tournament_id": tournamentId},
	}
}

func EventNotFoundError(eventId uint) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeEventNotFound,
		Message: fmt.Sprintf("Event with ID %d not found or not available.", eventId),
		Details: map[string]any{"event_id": eventId},
	}
}

func CategoryNotFoundError(categoryId, eventId uint) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeCategoryNotFound,
		Message: fmt.Sprintf("Category with ID %d not found for event %d.", categoryId, eventId),
		Details: map[string]any{"category_id": categoryId, "event_id": eventId},
	}
}

func CategoryEventMismatchError(categoryId, eventId uint) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeCategoryEventMismatch,
		Message: fmt.Sprintf("Category %d does not belong to event %d.", categoryId, eventId),
		Details: map[string]any{"category_id": categoryId, "event_id": eventId},
	}
}

// reason is "closed" for inactive or hidden categories and "sold_out" when no
// seats remain.
func CategoryNotPurchasableError(categoryName, reason string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeCategoryNotPurchasable,
		Message: fmt.Sprintf("Category %s is not available for purchase (%s).", categoryName, reason),
		Details: map[string]any{"category": categoryName, "reason": reason},
	}
}

func InsufficientSeatsError(categoryName string, available, requested uint) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeInsufficientSeats,
		Message: fmt.Sprintf("Only %d seats available for %s, but %d requested.", available, categoryName, requested),
		Details: map[string]any{"category": categoryName, "available": available, "requested": requested},
	}
}

func OrderNotFoundError(orderId string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeOrderNotFound,
		Message: "Order not found",
		Details: map[string]any{"order_id": orderId},
	}
}

func InvalidStatusError(current OrderStatus) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeInvalidStatus,
		Message: fmt.Sprintf("Order cannot be paid. Current status: %s", current),
		Details: map[string]any{"status": string(current)},
	}
}
