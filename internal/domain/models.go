package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionOption represents how the customer and reformer exchange goods
type TransactionOption string

const (
	TransactionFaceToFace TransactionOption = "face-to-face"
	TransactionRemote     TransactionOption = "remote"
)

// Transaction holds the transaction mode chosen for an order
type Transaction struct {
	Option TransactionOption `json:"transaction_option"`
}

// ServiceInfo references the service an order was placed against.
// Either half may be missing on malformed records; such orders are
// still aggregated, they just receive fallback display values.
type ServiceInfo struct {
	MarketUUID  uuid.UUID `json:"market_uuid"`
	ServiceUUID uuid.UUID `json:"service_uuid"`
}

// OrderImage represents an image attached to an order
type OrderImage struct {
	ImageType string `json:"image_type"`
	ImageURL  string `json:"image"`
}

// Order represents one customer-reformer transaction as sent by the platform API
type Order struct {
	OrderUUID   uuid.UUID     `json:"order_uuid"`
	OrderDate   time.Time     `json:"order_date"`
	TotalPrice  int64         `json:"total_price"`
	Transaction Transaction   `json:"transaction"`
	ServiceInfo *ServiceInfo  `json:"service_info,omitempty"`
	OrderStatus []StatusEvent `json:"order_status"`
	Images      []OrderImage  `json:"images,omitempty"`
}

// ServiceKey is the composite (market, service) identifier used to look up
// service metadata. It is a comparable struct so it can be used directly as
// a map key; joining the halves into a delimited string would be unsafe if
// an identifier ever contained the delimiter.
type ServiceKey struct {
	MarketUUID  uuid.UUID
	ServiceUUID uuid.UUID
}

// Valid reports whether both halves of the key are present
func (k ServiceKey) Valid() bool {
	return k.MarketUUID != uuid.Nil && k.ServiceUUID != uuid.Nil
}

// ServiceKey returns the metadata lookup key for the order. Extraction and
// join must construct the key through this one method so the two can never
// disagree.
func (o Order) ServiceKey() ServiceKey {
	if o.ServiceInfo == nil {
		return ServiceKey{}
	}
	return ServiceKey{
		MarketUUID:  o.ServiceInfo.MarketUUID,
		ServiceUUID: o.ServiceInfo.ServiceUUID,
	}
}

// OrderImageURL returns the URL of the order's display image, if any.
// At most one image of type "order" is meaningful.
func (o Order) OrderImageURL() string {
	for _, img := range o.Images {
		if img.ImageType == "order" {
			return img.ImageURL
		}
	}
	return ""
}

// ServiceMetadata describes a service as resolved from the market catalog.
// Fetched at most once per distinct ServiceKey and immutable after fetch.
type ServiceMetadata struct {
	MarketUUID   uuid.UUID
	ServiceUUID  uuid.UUID
	ServiceTitle string
	ReformerName string
}

// EnrichedOrder is a raw order augmented with joined service metadata
type EnrichedOrder struct {
	Order
	ServiceTitle string `json:"service_title"`
	ReformerName string `json:"reformer_name"`
	ImageURL     string `json:"image_url,omitempty"`
}
