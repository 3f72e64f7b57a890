package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/shop"
	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

const seedActor = "seed"

type seedUser struct {
	name, email, role, password string
}

var demoUsers = []seedUser{
	{name: "Store Admin", email: "admin@pos.local", role: "Admin", password: "admin12345"},
	{name: "Front Cashier", email: "cashier@pos.local", role: "Cashier", password: "cashier12345"},
}

var demoProducts = []catalog.Input{
	{Name: "Basmati Rice 5kg", SKU: "RICE-5KG", Category: "Grocery", Price: 549, Quantity: 40, GenerateBarcode: true},
	{Name: "Toor Dal 1kg", SKU: "DAL-1KG", Category: "Grocery", Price: 165, Quantity: 60, GenerateBarcode: true},
	{Name: "Sunflower Oil 1L", SKU: "OIL-1L", Category: "Grocery", Price: 142.5, Quantity: 35, GenerateBarcode: true},
	{Name: "Masala Chai 250g", SKU: "TEA-250", Category: "Beverages", Price: 120, Quantity: 8, GenerateBarcode: true},
	{Name: "Instant Coffee 100g", SKU: "COF-100", Category: "Beverages", Price: 310, Quantity: 4, GenerateBarcode: true},
	{Name: "Bath Soap Pack of 4", SKU: "SOAP-4", Category: "Personal Care", Price: 180, Quantity: 25, GenerateBarcode: true},
	{Name: "Toothpaste 150g", SKU: "TP-150", Category: "Personal Care", Price: 95, Quantity: 0, GenerateBarcode: true},
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	svc, err := app.Build(ctx, cfg, app.NewLogger(cfg))
	if err != nil {
		log.Fatalf("build services: %v", err)
	}
	defer svc.Close()

	fmt.Println("→ Seeding users...")
	for _, u := range demoUsers {
		_, err := svc.Users.Add(ctx, seedActor, users.Input{Name: u.name, Email: u.email, Role: u.role}, u.password)
		switch {
		case errors.Is(err, users.ErrEmailInUse):
			fmt.Printf("  %s exists, skipping\n", u.email)
		case err != nil:
			log.Fatalf("seed user %s: %v", u.email, err)
		}
	}

	fmt.Println("→ Seeding shop profile...")
	name, phone, email := "Demo Kirana Store", "+91 98765 43210", "owner@pos.local"
	address, gst := "12 Market Road, Pune", "27ABCDE1234F1Z5"
	if _, err := svc.Shop.Save(ctx, shop.Patch{Name: &name, Address: &address, Phone: &phone, Email: &email, GSTNumber: &gst}); err != nil {
		log.Fatalf("seed shop: %v", err)
	}

	fmt.Println("→ Seeding products...")
	existing, err := svc.Catalog.List(ctx, catalog.Filter{})
	if err != nil {
		log.Fatalf("list products: %v", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		known[p.SKU] = struct{}{}
	}
	created := 0
	for _, in := range demoProducts {
		if _, ok := known[in.SKU]; ok {
			continue
		}
		if _, err := svc.Catalog.Create(ctx, seedActor, in); err != nil {
			log.Fatalf("seed product %s: %v", in.SKU, err)
		}
		created++
	}
	fmt.Printf("✓ Seed complete (%d new products, store=%s)\n", created, cfg.StoreBackend)
}
