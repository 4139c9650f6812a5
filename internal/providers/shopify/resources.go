package shopify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	shopifydomain "github.com/niaga-platform/service-finance/internal/domain/shopify"
)

const (
	OrdersPath    = "orders.json"
	CustomersPath = "customers.json"
	ShopPath      = "shop.json"
	ProductsPath  = "products.json"
)

// Order is the subset of the Admin API order resource read by this service.
type Order struct {
	ID                int64   `json:"id"`
	OrderNumber       int64   `json:"order_number"`
	Name              string  `json:"name"`
	TotalPrice        string  `json:"total_price"`
	Currency          string  `json:"currency"`
	CreatedAt         string  `json:"created_at"`
	FinancialStatus   string  `json:"financial_status"`
	FulfillmentStatus *string `json:"fulfillment_status"`
}

// Customer is the subset of the Admin API customer resource read by this service.
type Customer struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Shop is the store profile returned by shop.json.
type Shop struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Currency        string `json:"currency"`
	IanaTimezone    string `json:"iana_timezone"`
	PlanName        string `json:"plan_name"`
}

// Product is a catalogue entry returned by products.json.
type Product struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Vendor      string `json:"vendor"`
	ProductType string `json:"product_type"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// GetOrders fetches the most recent orders in any status, newest first.
func (c *Client) GetOrders(ctx context.Context, accessToken string, limit int) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	req := &Request{
		Method: http.MethodGet,
		Path:   OrdersPath,
		Query: url.Values{
			"status": {"any"},
			"limit":  {strconv.Itoa(clampLimit(limit))},
		},
	}
	if err := c.Do(ctx, accessToken, req, &resp); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		resp.Orders = []Order{}
	}
	return resp.Orders, nil
}

// GetCustomers fetches up to limit customers.
func (c *Client) GetCustomers(ctx context.Context, accessToken string, limit int) ([]Customer, error) {
	var resp struct {
		Customers []Customer `json:"customers"`
	}
	req := &Request{
		Method: http.MethodGet,
		Path:   CustomersPath,
		Query:  url.Values{"limit": {strconv.Itoa(clampLimit(limit))}},
	}
	if err := c.Do(ctx, accessToken, req, &resp); err != nil {
		return nil, err
	}
	if resp.Customers == nil {
		resp.Customers = []Customer{}
	}
	return resp.Customers, nil
}

// GetShop fetches the store profile.
func (c *Client) GetShop(ctx context.Context, accessToken string) (*Shop, error) {
	var resp struct {
		Shop *Shop `json:"shop"`
	}
	if err := c.Do(ctx, accessToken, &Request{Method: http.MethodGet, Path: ShopPath}, &resp); err != nil {
		return nil, err
	}
	if resp.Shop == nil {
		return nil, shopifydomain.ErrInvalidResponse
	}
	return resp.Shop, nil
}

// GetProducts fetches up to limit products.
func (c *Client) GetProducts(ctx context.Context, accessToken string, limit int) ([]Product, error) {
	var resp struct {
		Products []Product `json:"products"`
	}
	req := &Request{
		Method: http.MethodGet,
		Path:   ProductsPath,
		Query:  url.Values{"limit": {strconv.Itoa(clampLimit(limit))}},
	}
	if err := c.Do(ctx, accessToken, req, &resp); err != nil {
		return nil, err
	}
	if resp.Products == nil {
		resp.Products = []Product{}
	}
	return resp.Products, nil
}

// ValidateToken checks the token against shop.json.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) error {
	_, err := c.GetShop(ctx, accessToken)
	return err
}
