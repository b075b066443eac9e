// Package response turns tool results into the replies sent to the user.
// Every function here is pure.
package response

import (
	"fmt"
	"strings"

	"github.com/huythanhnguyen/ai-agent/internal/commerce"
	"github.com/huythanhnguyen/ai-agent/internal/llm"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
)

type ProductData struct {
	Keywords []string                          `json:"keywords"`
	Results  map[string]commerce.ProductResult `json:"results"`
}

// Products summarizes a product search across keywords.
func Products(results map[string]commerce.ProductResult, keywords []string) models.AgentResponse {
	data := ProductData{
		Keywords: keywords,
		Results:  make(map[string]commerce.ProductResult, len(results)),
	}

	total, failed := 0, 0
	for _, kw := range keywords {
		res, ok := results[kw]
		if !ok {
			continue
		}
		if res.Products == nil {
			res.Products = []commerce.Product{}
		}
		data.Results[kw] = res
		if res.Error != "" {
			failed++
			continue
		}
		total += res.TotalCount
	}

	joined := strings.Join(keywords, ", ")
	var msg string
	switch {
	case total > 0:
		msg = fmt.Sprintf("Found %d products matching: %s", total, joined)
	case len(keywords) > 0 && failed == len(keywords):
		msg = "Sorry, something went wrong while searching for products. Please try again later."
	default:
		msg = fmt.Sprintf("No products found for: %s", joined)
	}

	return models.AgentResponse{Message: msg, Data: data, Type: models.ResponseProduct}
}

var orderStatusLabels = map[string]string{
	"processing":      "being processed",
	"pending":         "waiting for confirmation",
	"pending_payment": "waiting for payment",
	"on_hold":         "on hold",
	"completed":       "completed",
	"shipped":         "out for delivery",
	"canceled":        "canceled",
	"refunded":        "refunded",
}

// Order describes an order lookup. A lookup error becomes a text reply.
func Order(order *commerce.Order, err error) models.AgentResponse {
	if err != nil {
		return models.AgentResponse{
			Message: "Sorry, I could not retrieve the order information: " + commerce.ErrorText(err),
			Type:    models.ResponseText,
		}
	}

	id := order.OrderID
	if id == "" {
		id = "N/A"
	}
	status := order.Status
	if status == "" {
		status = "N/A"
	}
	if label, ok := orderStatusLabels[strings.ToLower(status)]; ok {
		status = label
	}

	msg := fmt.Sprintf("Order #%s is %s.", id, status)
	if order.EstimatedDelivery != "" {
		msg += fmt.Sprintf(" Estimated delivery: %s.", order.EstimatedDelivery)
	}

	return models.AgentResponse{Message: msg, Data: order, Type: models.ResponseOrder}
}

func MissingOrderID() models.AgentResponse {
	return models.AgentResponse{
		Message: "Please give me your order number so I can check its status.",
		Type:    models.ResponseText,
	}
}

type ProfileData struct {
	BasicInfo *commerce.Customer   `json:"basic_info"`
	CDPInfo   *commerce.CDPProfile `json:"cdp_info,omitempty"`
}

// CustomerProfile greets the customer with their loyalty status. cdp may be
// nil when the CDP lookup failed.
func CustomerProfile(customer *commerce.Customer, err error, cdp *commerce.CDPProfile) models.AgentResponse {
	if err != nil {
		return models.AgentResponse{
			Message: "Sorry, I could not retrieve the customer information: " + commerce.ErrorText(err),
			Type:    models.ResponseText,
		}
	}

	name := strings.TrimSpace(customer.Firstname + " " + customer.Lastname)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! ", name)

	if cdp != nil {
		if l := cdp.Loyalty; l != nil && l.Tier != "" && l.Points > 0 {
			fmt.Fprintf(&b, "You are a %s member with %d loyalty points. ", l.Tier, l.Points)
		}
		if p := cdp.PurchaseHistory; p != nil && p.TotalOrders > 0 {
			fmt.Fprintf(&b, "You have placed %d orders with Mega Market. ", p.TotalOrders)
		}
		if len(cdp.Recommendations) > 0 {
			b.WriteString("Based on your purchase history, we have some product recommendations for you.")
		}
	}

	return models.AgentResponse{
		Message: strings.TrimSpace(b.String()),
		Data:    ProfileData{BasicInfo: customer, CDPInfo: cdp},
		Type:    models.ResponseCustomerProfile,
	}
}

type SuggestionData struct {
	Suggestions []commerce.Recommendation `json:"suggestions"`
	TotalCount  int                       `json:"total_count"`
}

func Suggestions(items []commerce.Recommendation) models.AgentResponse {
	if len(items) == 0 {
		return models.AgentResponse{Message: "There are no product suggestions.", Type: models.ResponseText}
	}
	return models.AgentResponse{
		Message: "You may be interested in the following products:",
		Data:    SuggestionData{Suggestions: items, TotalCount: len(items)},
		Type:    models.ResponseSuggestion,
	}
}

func Category(category *commerce.Category, err error) models.AgentResponse {
	if err != nil {
		return models.AgentResponse{
			Message: "Sorry, I could not retrieve the category information: " + commerce.ErrorText(err),
			Type:    models.ResponseText,
		}
	}

	msg := fmt.Sprintf("About the %s category:", category.Name)
	if len(category.Subcategories) > 0 {
		msg += "\nSubcategories: " + strings.Join(category.Subcategories, ", ")
	}
	if len(category.PopularBrands) > 0 {
		msg += "\nPopular brands: " + strings.Join(category.PopularBrands, ", ")
	}
	if category.Promotion != "" {
		msg += "\nCurrent promotion: " + category.Promotion
	}

	return models.AgentResponse{Message: msg, Data: category, Type: models.ResponseCategory}
}

func Error(detail string) models.AgentResponse {
	return models.AgentResponse{
		Message: fmt.Sprintf("Sorry, an error occurred: %s. Please try again later or call the %s hotline for support.", detail, llm.SupportHotline),
		Type:    models.ResponseError,
	}
}

func Fallback() models.AgentResponse {
	return models.AgentResponse{
		Message: "Sorry, I did not understand your request. You can ask about products, orders or Mega Market services.",
		Type:    models.ResponseText,
	}
}

// Apology is the reply when a request could not be processed at all.
func Apology() models.AgentResponse {
	return models.AgentResponse{
		Message: "Sorry, I cannot process your request right now. Please try again later or call the " + llm.SupportHotline + " hotline for support.",
		Type:    models.ResponseText,
	}
}

// Text wraps a generated answer.
func Text(message string) models.AgentResponse {
	return models.AgentResponse{Message: message, Type: models.ResponseText}
}
