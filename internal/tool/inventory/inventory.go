// Package inventory exposes the Skyline Motors vehicle catalog as the
// search_inventory tool.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skylinemotors/concierge/internal/tool"
)

// Vehicle is a single catalog entry.
type Vehicle struct {
	Model    string `json:"model"`
	Trim     string `json:"trim"`
	BodyType string `json:"body_type"`
	Price    int    `json:"price"`
	Color    string `json:"color"`
	InStock  bool   `json:"in_stock"`
}

// maxResults caps a single search so the model never gets a wall of JSON.
const maxResults = 5

// Catalog returns the current showroom inventory in display order.
func Catalog() []Vehicle {
	return []Vehicle{
		{Model: "Skyline Aurora", Trim: "LX", BodyType: "sedan", Price: 18500, Color: "silver", InStock: true},
		{Model: "Skyline Aurora", Trim: "EX", BodyType: "sedan", Price: 22500, Color: "blue", InStock: true},
		{Model: "Skyline Horizon", Trim: "Sport", BodyType: "sedan", Price: 29500, Color: "red", InStock: true},
		{Model: "Skyline Trailrunner", Trim: "AWD", BodyType: "suv", Price: 34500, Color: "white", InStock: true},
		{Model: "Skyline CityLite", Trim: "Base", BodyType: "hatchback", Price: 15500, Color: "gray", InStock: false},
	}
}

// SearchArgs are the model-facing arguments for search_inventory.
type SearchArgs struct {
	BodyType string `json:"body_type,omitempty" jsonschema:"description=Body style such as sedan blank matches all"`
	MinPrice int    `json:"min_price,omitempty" jsonschema:"description=Minimum price in USD"`
	MaxPrice int    `json:"max_price,omitempty" jsonschema:"description=Maximum price in USD zero means no cap"`
}

// Search filters the catalog. Matching is body-type equality (case-insensitive)
// plus inclusive price bounds; out-of-stock vehicles are never returned. The
// catalog order is preserved and results are capped at maxResults.
func Search(args SearchArgs) []Vehicle {
	wantBody := strings.ToLower(args.BodyType)

	var results []Vehicle
	for _, v := range Catalog() {
		if wantBody != "" && strings.ToLower(v.BodyType) != wantBody {
			continue
		}
		if args.MinPrice > 0 && v.Price < args.MinPrice {
			continue
		}
		if args.MaxPrice > 0 && v.Price > args.MaxPrice {
			continue
		}
		if !v.InStock {
			continue
		}
		results = append(results, v)
		if len(results) >= maxResults {
			break
		}
	}
	return results
}

// FormatForPrompt renders search results as short human-readable lines, one
// vehicle per line.
func FormatForPrompt(vehicles []Vehicle) string {
	if len(vehicles) == 0 {
		return "No matching vehicles found in the current inventory."
	}
	lines := make([]string, len(vehicles))
	for i, v := range vehicles {
		lines[i] = fmt.Sprintf("%s %s (%s), %s, approx $%d.", v.Model, v.Trim, v.BodyType, v.Color, v.Price)
	}
	return strings.Join(lines, "\n")
}

// NewTool returns the search_inventory tool backed by the fixed catalog.
func NewTool() tool.Tool {
	return tool.Tool{
		Name: "search_inventory",
		Description: "Search Skyline Motors inventory for available vehicles by " +
			"body type and price range. Returns model, trim, body type, price, " +
			"color, and stock status. Use it whenever the customer asks what is " +
			"available in a budget.",
		Schema: tool.MustArgsSchema[SearchArgs](),
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args SearchArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("inventory: decode args: %w", err)
			}
			out, err := json.Marshal(Search(args))
			if err != nil {
				return "", fmt.Errorf("inventory: encode results: %w", err)
			}
			return string(out), nil
		},
	}
}
