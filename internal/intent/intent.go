// Package intent classifies a user message into one of four intents.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

type Kind string

const (
	KindProductSearch   Kind = "product_search"
	KindOrderStatus     Kind = "order_status"
	KindCustomerSupport Kind = "customer_support"
	KindGeneral         Kind = "general"
)

// Intent is one of ProductSearch, OrderStatus, CustomerSupport or General.
type Intent interface {
	Kind() Kind
}

type ProductSearch struct {
	Keywords []string
}

type OrderStatus struct {
	// OrderID is empty when the user did not mention one.
	OrderID string
}

type CustomerSupport struct {
	Issue string
}

type General struct {
	Query string
}

func (ProductSearch) Kind() Kind   { return KindProductSearch }
func (OrderStatus) Kind() Kind     { return KindOrderStatus }
func (CustomerSupport) Kind() Kind { return KindCustomerSupport }
func (General) Kind() Kind         { return KindGeneral }

// Payload is the flat JSON form of an Intent, used both for the model's
// structured output and for cache entries.
type Payload struct {
	Type     Kind     `json:"type" jsonschema:"enum=product_search,enum=order_status,enum=customer_support,enum=general,description=Intent category of the message"`
	Keywords []string `json:"keywords,omitempty" jsonschema:"description=Product search keywords"`
	OrderID  string   `json:"order_id,omitempty" jsonschema:"description=Order number if the user mentioned one"`
	Issue    string   `json:"issue,omitempty" jsonschema:"description=Problem the customer needs help with"`
	Query    string   `json:"query,omitempty" jsonschema:"description=The question for any other message"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

// Schema is the JSON schema the model must follow: a required "type" from the
// four kinds and optional per-kind fields.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{
			Anonymous:      true,
			ExpandedStruct: true,
			DoNotReference: true,
		}
		schema = r.Reflect(&Payload{})
		schema.Version = ""
	})
	return schema
}

// ToPayload flattens an intent into its wire form.
func ToPayload(in Intent) Payload {
	switch v := in.(type) {
	case ProductSearch:
		return Payload{Type: KindProductSearch, Keywords: v.Keywords}
	case OrderStatus:
		return Payload{Type: KindOrderStatus, OrderID: v.OrderID}
	case CustomerSupport:
		return Payload{Type: KindCustomerSupport, Issue: v.Issue}
	case General:
		return Payload{Type: KindGeneral, Query: v.Query}
	default:
		return Payload{Type: in.Kind()}
	}
}

// Intent converts the payload into its variant. Unknown types are an error.
func (p Payload) Intent() (Intent, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(string(p.Type)))) {
	case KindProductSearch:
		return ProductSearch{Keywords: cleanKeywords(p.Keywords)}, nil
	case KindOrderStatus:
		return OrderStatus{OrderID: strings.TrimSpace(p.OrderID)}, nil
	case KindCustomerSupport:
		return CustomerSupport{Issue: strings.TrimSpace(p.Issue)}, nil
	case KindGeneral:
		return General{Query: strings.TrimSpace(p.Query)}, nil
	default:
		return nil, fmt.Errorf("unknown intent type %q", p.Type)
	}
}

// decodeStructured coerces the model's JSON object into an Intent. Results
// that carry the structural-default "error" marker are rejected.
func decodeStructured(raw map[string]any) (Intent, error) {
	if raw == nil {
		return nil, fmt.Errorf("empty classification")
	}
	if msg, ok := raw["error"]; ok {
		return nil, fmt.Errorf("classification failed: %v", msg)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode classification: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	return p.Intent()
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// String renders an intent for logs.
func String(in Intent) string {
	switch v := in.(type) {
	case ProductSearch:
		return fmt.Sprintf("%s%v", v.Kind(), v.Keywords)
	case OrderStatus:
		return fmt.Sprintf("%s(%s)", v.Kind(), v.OrderID)
	default:
		return string(in.Kind())
	}
}
