package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upcymarket/orderapi/internal/domain"
	"github.com/upcymarket/orderapi/internal/upcy"
	apperrors "github.com/upcymarket/orderapi/pkg/errors"
)

// Fallback display values for orders whose service metadata could not be
// resolved. Aggregation still succeeds for such orders.
const (
	FallbackServiceTitle = "service name unavailable"
	FallbackReformerName = "anonymous reformer"
)

// metadataLookupLimit caps how many metadata lookups run at once
const metadataLookupLimit = 8

// MarketAPI describes the remote platform calls the order service needs
type MarketAPI interface {
	GetCurrentUser(ctx context.Context, credential string) (*upcy.User, error)
	GetOrders(ctx context.Context, credential, email string) ([]domain.Order, error)
	GetServiceMetadata(ctx context.Context, credential string, key domain.ServiceKey) (*domain.ServiceMetadata, error)
	CompleteOrder(ctx context.Context, credential string, orderUUID uuid.UUID) error
}

// OrderService reconstructs a customer's order history: it resolves the
// user's identity, fetches the raw order list, joins in per-service
// metadata, and exposes the enriched result. Every call builds the
// collection from scratch; nothing is cached between cycles.
type OrderService struct {
	api    MarketAPI
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(api MarketAPI, logger *zap.Logger) *OrderService {
	return &OrderService{
		api:    api,
		logger: logger,
	}
}

// FetchOrders resolves the current user and returns their raw order list,
// in server-provided order. Fails before any network call when the
// credential is absent.
func (s *OrderService) FetchOrders(ctx context.Context, credential string) ([]domain.Order, error) {
	if credential == "" {
		return nil, apperrors.ErrAuthenticationMissing
	}

	user, err := s.api.GetCurrentUser(ctx, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIdentityResolutionFailed, err)
	}
	if user == nil || user.Email == "" {
		return nil, fmt.Errorf("%w: empty identity payload", apperrors.ErrIdentityResolutionFailed)
	}

	orders, err := s.api.GetOrders(ctx, credential, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrOrderListUnavailable, err)
	}

	return orders, nil
}

// resolveServiceMetadata fetches metadata for every distinct service key
// referenced by the orders. N orders referencing K distinct keys cost
// exactly K lookups, issued concurrently. A failed lookup leaves its key
// absent from the map and never fails the joiner; the map is returned only
// after every lookup has settled.
func (s *OrderService) resolveServiceMetadata(ctx context.Context, credential string, orders []domain.Order) map[domain.ServiceKey]domain.ServiceMetadata {
	keys := make(map[domain.ServiceKey]struct{})
	for _, order := range orders {
		if key := order.ServiceKey(); key.Valid() {
			keys[key] = struct{}{}
		}
	}

	resolved := make(map[domain.ServiceKey]domain.ServiceMetadata, len(keys))
	if len(keys) == 0 {
		return resolved
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataLookupLimit)

	for key := range keys {
		key := key
		g.Go(func() error {
			metadata, err := s.api.GetServiceMetadata(ctx, credential, key)
			if err != nil {
				// Soft failure: the key stays absent and the caller falls
				// back to placeholder display values for its orders.
				lookupErr := &apperrors.MetadataLookupError{Key: key, Err: err}
				s.logger.Warn("service metadata lookup failed",
					zap.String("market_uuid", key.MarketUUID.String()),
					zap.String("service_uuid", key.ServiceUUID.String()),
					zap.Error(lookupErr))
				return nil
			}

			mu.Lock()
			resolved[key] = *metadata
			mu.Unlock()
			return nil
		})
	}

	// Lookups never return errors, so Wait only blocks until all settle.
	_ = g.Wait()

	return resolved
}

// Aggregate runs one full aggregation cycle and returns the enriched order
// collection, one entry per raw order. Identity and order-list failures
// abort the cycle; metadata failures degrade to fallback display values.
func (s *OrderService) Aggregate(ctx context.Context, credential string) ([]domain.EnrichedOrder, error) {
	orders, err := s.FetchOrders(ctx, credential)
	if err != nil {
		return nil, err
	}

	enriched := make([]domain.EnrichedOrder, 0, len(orders))
	if len(orders) == 0 {
		// No keys to resolve; skip the metadata round-trip entirely.
		return enriched, nil
	}

	metadata := s.resolveServiceMetadata(ctx, credential, orders)

	for _, order := range orders {
		title := FallbackServiceTitle
		reformer := FallbackReformerName
		if meta, ok := metadata[order.ServiceKey()]; ok {
			if meta.ServiceTitle != "" {
				title = meta.ServiceTitle
			}
			if meta.ReformerName != "" {
				reformer = meta.ReformerName
			}
		}

		enriched = append(enriched, domain.EnrichedOrder{
			Order:        order,
			ServiceTitle: title,
			ReformerName: reformer,
			ImageURL:     order.OrderImageURL(),
		})
	}

	return enriched, nil
}

// CompleteOrder issues the customer's mark-completed transition. Local state
// is never patched on success; the next aggregation cycle observes the
// server's truth, so a failed call is safe to retry.
func (s *OrderService) CompleteOrder(ctx context.Context, credential string, orderUUID uuid.UUID) error {
	if credential == "" {
		return apperrors.ErrAuthenticationMissing
	}

	if err := s.api.CompleteOrder(ctx, credential, orderUUID); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCompletionTransitionFailed, err)
	}

	s.logger.Info("order marked completed", zap.String("order_uuid", orderUUID.String()))
	return nil
}
