package commerce

type Product struct {
	ID       int     `json:"id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	URLKey   string  `json:"url_key,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

// ProductResult is the outcome of one keyword of a product search. Error is
// set instead of returning an error so one bad keyword does not hide the
// others.
type ProductResult struct {
	TotalCount int       `json:"total_count"`
	Products   []Product `json:"products"`
	Error      string    `json:"error,omitempty"`
}

type Order struct {
	OrderID           string      `json:"order_id"`
	Status            string      `json:"status"`
	CreatedAt         string      `json:"created_at,omitempty"`
	EstimatedDelivery string      `json:"estimated_delivery,omitempty"`
	GrandTotal        float64     `json:"grand_total,omitempty"`
	Currency          string      `json:"currency,omitempty"`
	Items             []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name,omitempty"`
	Quantity int     `json:"qty"`
	Price    float64 `json:"price,omitempty"`
}

// OrderRequest is the body of a new order.
type OrderRequest struct {
	Items           []OrderItem `json:"items"`
	ShippingAddress *Address    `json:"shipping_address,omitempty"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	ShippingMethod  string      `json:"shipping_method,omitempty"`
}

type Address struct {
	Name      string `json:"name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	Telephone string `json:"telephone"`
}

type Customer struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"telephone,omitempty"`
}

type CDPProfile struct {
	Loyalty         *Loyalty         `json:"loyalty,omitempty"`
	PurchaseHistory *PurchaseHistory `json:"purchase_history,omitempty"`
	Segments        []string         `json:"segments,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

type Loyalty struct {
	Tier   string `json:"tier"`
	Points int    `json:"points"`
}

type PurchaseHistory struct {
	TotalOrders int     `json:"total_orders"`
	TotalSpent  float64 `json:"total_spent,omitempty"`
}

type Recommendation struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price,omitempty"`
	Category string  `json:"category,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	URL      string  `json:"url,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

type Category struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories,omitempty"`
	PopularBrands []string `json:"popular_brands,omitempty"`
	Promotion     string   `json:"promotion,omitempty"`
}

// GraphQL wire types of the Magento product search.

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type productSearchResponse struct {
	Data struct {
		Products struct {
			Items      []productItem `json:"items"`
			TotalCount int           `json:"total_count"`
		} `json:"products"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type productItem struct {
	ID         int    `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	URLKey     string `json:"url_key"`
	PriceRange struct {
		MinimumPrice struct {
			RegularPrice struct {
				Value    float64 `json:"value"`
				Currency string  `json:"currency"`
			} `json:"regular_price"`
		} `json:"minimum_price"`
	} `json:"price_range"`
	SmallImage struct {
		URL string `json:"url"`
	} `json:"small_image"`
}

func convertProduct(item productItem) Product {
	return Product{
		ID:       item.ID,
		SKU:      item.SKU,
		Name:     item.Name,
		URLKey:   item.URLKey,
		Price:    item.PriceRange.MinimumPrice.RegularPrice.Value,
		Currency: item.PriceRange.MinimumPrice.RegularPrice.Currency,
		ImageURL: item.SmallImage.URL,
	}
}

const productSearchQuery = `query ProductSearch($search: String!) {
  products(search: $search, sort: { relevance: DESC }) {
    items {
      id
      sku
      name
      url_key
      price_range {
        minimum_price {
          regular_price {
            value
            currency
          }
        }
      }
      small_image {
        url
      }
    }
    total_count
  }
}`
