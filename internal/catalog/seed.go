package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var productNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("storefront-service/products"))

// ProductID derives a stable id from a product name so seeded ids survive restarts.
func ProductID(name string) string {
	return uuid.NewSHA1(productNamespace, []byte(name)).String()
}

type seedRow struct {
	name, price, image, description, category string
	stock                                     int
}

var seedRows = []seedRow{
	{"Wireless Bluetooth Headphones", "79.99", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500&h=500&fit=crop", "Premium wireless headphones with noise cancellation and 30-hour battery life.", "Electronics", 50},
	{"Organic Cotton T-Shirt", "24.99", "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=500&h=500&fit=crop", "Comfortable, breathable organic cotton t-shirt in various colors.", "Clothing", 100},
	{"Stainless Steel Water Bottle", "19.99", "https://images.unsplash.com/photo-1602143407151-7111542de6e8?w=500&h=500&fit=crop", "Eco-friendly stainless steel water bottle that keeps drinks cold for 24 hours.", "Lifestyle", 75},
	{"Smartphone Stand", "15.99", "https://images.unsplash.com/photo-1555774698-0b77e0d5fac6?w=500&h=500&fit=crop", "Adjustable aluminum smartphone stand for desk and bedside use.", "Electronics", 200},
	{"Yoga Mat", "39.99", "https://images.unsplash.com/photo-1601925260368-ae2f83cf8b7f?w=500&h=500&fit=crop", "Non-slip yoga mat with extra cushioning for comfort during workouts.", "Fitness", 60},
	{"Coffee Mug Set", "29.99", "https://images.unsplash.com/photo-1514228742587-6b1558fcf93a?w=500&h=500&fit=crop", "Set of 4 ceramic coffee mugs with elegant design and comfortable grip.", "Kitchen", 80},
	{"LED Desk Lamp", "45.99", "https://images.unsplash.com/photo-1507473885765-e6ed057f782c?w=500&h=500&fit=crop", "Adjustable LED desk lamp with USB charging port and touch controls.", "Home", 40},
	{"Wireless Charging Pad", "25.99", "https://images.unsplash.com/photo-1586953208448-b95a79798f07?w=500&h=500&fit=crop", "Fast wireless charging pad compatible with all Qi-enabled devices.", "Electronics", 90},
	{"Canvas Backpack", "54.99", "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=500&h=500&fit=crop", "Durable canvas backpack with multiple compartments and laptop sleeve.", "Accessories", 35},
	{"Essential Oil Diffuser", "34.99", "https://images.unsplash.com/photo-1544966503-7cc5ac882d5c?w=500&h=500&fit=crop", "Ultrasonic essential oil diffuser with LED lights and timer settings.", "Home", 55},
}

// SeedProducts returns the demo catalog.
func SeedProducts() []Product {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Product, 0, len(seedRows))
	for i, r := range seedRows {
		out = append(out, Product{
			ID:          ProductID(r.name),
			Name:        r.name,
			Description: r.description,
			Image:       r.image,
			Price:       decimal.RequireFromString(r.price),
			Stock:       r.stock,
			Category:    r.category,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}
