package shop

import (
	"encoding/json"
	"strings"
)

// Money is a price value as the backend serializes it. Shopify-sourced rows
// carry prices as strings while some search payloads carry raw numbers, so
// decoding accepts both.
type Money string

// UnmarshalJSON accepts a JSON string, number, or null.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*m = ""
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*m = Money(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = Money(n.String())
	return nil
}

// Image is a single product image reference.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Snapshot is a product copied at the moment it became relevant to the
// conversation. It is a value object, not a live reference; staleness is
// acceptable and expected.
type Snapshot struct {
	// ExternalID is the backend's product identifier (Shopify product id)
	ExternalID string `json:"shopify_id"`

	// Title is the product title at snapshot time
	Title string `json:"title"`

	// Price is the current price at snapshot time
	Price Money `json:"price,omitempty"`

	// CompareAtPrice is the pre-discount price, when the product is on sale
	CompareAtPrice Money `json:"compare_at_price,omitempty"`

	// Vendor is the brand name
	Vendor string `json:"vendor,omitempty"`

	// Images holds image references (usually just the first image)
	Images []Image `json:"images,omitempty"`

	// InventoryQuantity is the summed variant inventory at snapshot time
	InventoryQuantity int `json:"inventory_quantity,omitempty"`
}

// TitleWords returns the content words of the product title usable for
// lexical-overlap matching: lowercased words longer than three characters.
func (s *Snapshot) TitleWords() []string {
	if s == nil {
		return nil
	}
	fields := strings.Fields(strings.ToLower(s.Title))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		w = strings.Trim(w, ".,!?;:'\"()")
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

// OrderLineItem is one line of a remote order as returned by the backend.
type OrderLineItem struct {
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
	Quantity int    `json:"quantity"`
	Price    Money  `json:"price,omitempty"`
	Vendor   string `json:"vendor,omitempty"`
	SKU      string `json:"sku,omitempty"`
}

// Order is a summary of a remote order attached to an assistant turn.
type Order struct {
	OrderNumber       string          `json:"order_number"`
	Email             string          `json:"email,omitempty"`
	FinancialStatus   string          `json:"financial_status,omitempty"`
	FulfillmentStatus string          `json:"fulfillment_status,omitempty"`
	TotalPrice        Money           `json:"total_price,omitempty"`
	Currency          string          `json:"currency,omitempty"`
	CreatedAt         string          `json:"created_at,omitempty"`
	LineItems         []OrderLineItem `json:"line_items,omitempty"`
}
