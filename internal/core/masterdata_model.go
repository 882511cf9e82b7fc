package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. BaseCost values stock outflows that carry no
// explicit cost; SellingPrice is the default order line price.
type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	BaseCost     decimal.Decimal `json:"base_cost"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Client struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Address is a delivery address owned by one client.
type Address struct {
	ID       int    `json:"id"`
	ClientID int    `json:"client_id"`
	Address  string `json:"address"`
}

type Employee struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
