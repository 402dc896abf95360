package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upcymarket/orderapi/internal/domain"
	"github.com/upcymarket/orderapi/internal/upcy"
	apperrors "github.com/upcymarket/orderapi/pkg/errors"
)

// stubMarketAPI is an in-memory MarketAPI that counts calls so tests can
// assert exactly which remote lookups a pipeline run issued.
type stubMarketAPI struct {
	mu sync.Mutex

	user    *upcy.User
	userErr error

	orders    []domain.Order
	ordersErr error

	metadata    map[domain.ServiceKey]*domain.ServiceMetadata
	metadataErr map[domain.ServiceKey]error

	completeErr error

	userCalls     int
	orderCalls    int
	metadataCalls int
	completeCalls int
	completedIDs  []uuid.UUID
}

func (s *stubMarketAPI) GetCurrentUser(ctx context.Context, credential string) (*upcy.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userCalls++
	return s.user, s.userErr
}

func (s *stubMarketAPI) GetOrders(ctx context.Context, credential, email string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderCalls++
	return s.orders, s.ordersErr
}

func (s *stubMarketAPI) GetServiceMetadata(ctx context.Context, credential string, key domain.ServiceKey) (*domain.ServiceMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadataCalls++
	if err, ok := s.metadataErr[key]; ok {
		return nil, err
	}
	if meta, ok := s.metadata[key]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("no metadata for key %v", key)
}

func (s *stubMarketAPI) CompleteOrder(ctx context.Context, credential string, orderUUID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeCalls++
	s.completedIDs = append(s.completedIDs, orderUUID)
	return s.completeErr
}

func newTestService(api MarketAPI) *OrderService {
	return NewOrderService(api, zap.NewNop())
}

func authenticatedStub() *stubMarketAPI {
	return &stubMarketAPI{
		user:     &upcy.User{Email: "customer@upcy.co"},
		metadata: map[domain.ServiceKey]*domain.ServiceMetadata{},
	}
}

func orderWithKey(key domain.ServiceKey) domain.Order {
	return domain.Order{
		OrderUUID: uuid.New(),
		ServiceInfo: &domain.ServiceInfo{
			MarketUUID:  key.MarketUUID,
			ServiceUUID: key.ServiceUUID,
		},
	}
}

func newKey() domain.ServiceKey {
	return domain.ServiceKey{MarketUUID: uuid.New(), ServiceUUID: uuid.New()}
}

func registerMetadata(stub *stubMarketAPI, key domain.ServiceKey, title, reformer string) {
	stub.metadata[key] = &domain.ServiceMetadata{
		MarketUUID:   key.MarketUUID,
		ServiceUUID:  key.ServiceUUID,
		ServiceTitle: title,
		ReformerName: reformer,
	}
}

func TestAggregate_DeduplicatesMetadataLookups(t *testing.T) {
	stub := authenticatedStub()

	shared := newKey()
	registerMetadata(stub, shared, "denim tote rework", "jean-queen")

	// Five orders, two of them sharing one service pair: four lookups.
	keys := []domain.ServiceKey{shared, shared, newKey(), newKey(), newKey()}
	for _, key := range keys {
		if _, ok := stub.metadata[key]; !ok {
			registerMetadata(stub, key, "service", "reformer")
		}
		stub.orders = append(stub.orders, orderWithKey(key))
	}

	svc := newTestService(stub)

	enriched, err := svc.Aggregate(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if len(enriched) != 5 {
		t.Fatalf("got %d enriched orders, want 5", len(enriched))
	}
	if stub.metadataCalls != 4 {
		t.Fatalf("metadata lookups = %d, want 4 (one per distinct key)", stub.metadataCalls)
	}
}

func TestAggregate_JoinCompleteness(t *testing.T) {
	stub := authenticatedStub()

	for i := 0; i < 6; i++ {
		key := newKey()
		registerMetadata(stub, key, fmt.Sprintf("service %d", i), fmt.Sprintf("reformer %d", i))
		stub.orders = append(stub.orders, orderWithKey(key))
	}

	svc := newTestService(stub)

	enriched, err := svc.Aggregate(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if len(enriched) != len(stub.orders) {
		t.Fatalf("got %d enriched orders, want %d", len(enriched), len(stub.orders))
	}
	for i := range stub.orders {
		if enriched[i].OrderUUID != stub.orders[i].OrderUUID {
			t.Fatalf("order %d: uuid %s does not match input %s",
				i, enriched[i].OrderUUID, stub.orders[i].OrderUUID)
		}
	}
}

func TestAggregate_FallbackOnMissingMetadata(t *testing.T) {
	stub := authenticatedStub()

	failing := newKey()
	stub.metadataErr = map[domain.ServiceKey]error{
		failing: errors.New("connection reset"),
	}

	resolvable := newKey()
	registerMetadata(stub, resolvable, "denim tote rework", "jean-queen")

	stub.orders = []domain.Order{orderWithKey(failing), orderWithKey(resolvable)}

	svc := newTestService(stub)

	enriched, err := svc.Aggregate(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("per-key failure must not fail aggregation, got %v", err)
	}
	if len(enriched) != 2 {
		t.Fatalf("got %d enriched orders, want 2", len(enriched))
	}

	if enriched[0].ServiceTitle != FallbackServiceTitle {
		t.Fatalf("failed key: service_title = %q, want fallback %q", enriched[0].ServiceTitle, FallbackServiceTitle)
	}
	if enriched[0].ReformerName != FallbackReformerName {
		t.Fatalf("failed key: reformer_name = %q, want fallback %q", enriched[0].ReformerName, FallbackReformerName)
	}

	if enriched[1].ServiceTitle != "denim tote rework" || enriched[1].ReformerName != "jean-queen" {
		t.Fatalf("resolvable key must still be enriched, got %+v", enriched[1])
	}
}

func TestAggregate_MissingServicePairGetsFallback(t *testing.T) {
	stub := authenticatedStub()
	stub.orders = []domain.Order{
		{OrderUUID: uuid.New()}, // no service_info at all
		{OrderUUID: uuid.New(), ServiceInfo: &domain.ServiceInfo{MarketUUID: uuid.New()}}, // half a pair
	}

	svc := newTestService(stub)

	enriched, err := svc.Aggregate(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if len(enriched) != 2 {
		t.Fatalf("got %d enriched orders, want 2", len(enriched))
	}
	if stub.metadataCalls != 0 {
		t.Fatalf("metadata lookups = %d, want 0 for unresolvable pairs", stub.metadataCalls)
	}
	for i, order := range enriched {
		if order.ServiceTitle != FallbackServiceTitle || order.ReformerName != FallbackReformerName {
			t.Fatalf("order %d must carry fallback values, got %+v", i, order)
		}
	}
}

func TestAggregate_EmptyOrderListShortCircuits(t *testing.T) {
	stub := authenticatedStub()

	svc := newTestService(stub)

	enriched, err := svc.Aggregate(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if len(enriched) != 0 {
		t.Fatalf("got %d enriched orders, want 0", len(enriched))
	}
	if stub.metadataCalls != 0 {
		t.Fatalf("metadata lookups = %d, want 0 for empty order list", stub.metadataCalls)
	}
}

func TestAggregate_MissingCredential(t *testing.T) {
	stub := authenticatedStub()

	svc := newTestService(stub)

	_, err := svc.Aggregate(context.Background(), "")
	if !errors.Is(err, apperrors.ErrAuthenticationMissing) {
		t.Fatalf("expected ErrAuthenticationMissing, got %v", err)
	}
	if stub.userCalls != 0 || stub.orderCalls != 0 || stub.metadataCalls != 0 {
		t.Fatalf("no remote call may happen without a credential: user=%d orders=%d metadata=%d",
			stub.userCalls, stub.orderCalls, stub.metadataCalls)
	}
}

func TestAggregate_IdentityFailureIsolation(t *testing.T) {
	stub := &stubMarketAPI{userErr: errors.New("status 500")}

	svc := newTestService(stub)

	_, err := svc.Aggregate(context.Background(), "token-1")
	if !errors.Is(err, apperrors.ErrIdentityResolutionFailed) {
		t.Fatalf("expected ErrIdentityResolutionFailed, got %v", err)
	}
	if stub.orderCalls != 0 || stub.metadataCalls != 0 {
		t.Fatalf("identity failure must stop the pipeline: orders=%d metadata=%d",
			stub.orderCalls, stub.metadataCalls)
	}
}

func TestAggregate_EmptyIdentityPayload(t *testing.T) {
	stub := &stubMarketAPI{user: &upcy.User{}}

	svc := newTestService(stub)

	_, err := svc.Aggregate(context.Background(), "token-1")
	if !errors.Is(err, apperrors.ErrIdentityResolutionFailed) {
		t.Fatalf("expected ErrIdentityResolutionFailed for empty email, got %v", err)
	}
	if stub.orderCalls != 0 {
		t.Fatalf("order list must not be fetched without an identity")
	}
}

func TestAggregate_OrderListTransportFailure(t *testing.T) {
	stub := authenticatedStub()
	stub.ordersErr = errors.New("connection refused")

	svc := newTestService(stub)

	_, err := svc.Aggregate(context.Background(), "token-1")
	if !errors.Is(err, apperrors.ErrOrderListUnavailable) {
		t.Fatalf("expected ErrOrderListUnavailable, got %v", err)
	}
	if stub.metadataCalls != 0 {
		t.Fatalf("metadata must not be fetched when the order list failed")
	}
}

func TestCompleteOrder_OK(t *testing.T) {
	stub := authenticatedStub()

	svc := newTestService(stub)
	orderUUID := uuid.New()

	if err := svc.CompleteOrder(context.Background(), "token-1", orderUUID); err != nil {
		t.Fatalf("CompleteOrder error: %v", err)
	}
	if stub.completeCalls != 1 || stub.completedIDs[0] != orderUUID {
		t.Fatalf("completion not forwarded: calls=%d ids=%v", stub.completeCalls, stub.completedIDs)
	}
}

func TestCompleteOrder_RemoteFailure(t *testing.T) {
	stub := authenticatedStub()
	stub.completeErr = errors.New("status 409")

	svc := newTestService(stub)

	err := svc.CompleteOrder(context.Background(), "token-1", uuid.New())
	if !errors.Is(err, apperrors.ErrCompletionTransitionFailed) {
		t.Fatalf("expected ErrCompletionTransitionFailed, got %v", err)
	}
}

func TestCompleteOrder_MissingCredential(t *testing.T) {
	stub := authenticatedStub()

	svc := newTestService(stub)

	err := svc.CompleteOrder(context.Background(), "", uuid.New())
	if !errors.Is(err, apperrors.ErrAuthenticationMissing) {
		t.Fatalf("expected ErrAuthenticationMissing, got %v", err)
	}
	if stub.completeCalls != 0 {
		t.Fatalf("no remote call may happen without a credential")
	}
}
