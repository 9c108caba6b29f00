// Package booking records test drive requests captured during conversations
// and exposes them as the book_test_drive tool.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skylinemotors/concierge/internal/tool"
)

// Booking is one recorded test drive request.
type Booking struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customer_name"`
	ContactPhone  string    `json:"contact_phone"`
	ContactEmail  string    `json:"contact_email"`
	Model         string    `json:"model"`
	PreferredTime string    `json:"preferred_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists bookings. Bookings are append-only; the sales team follows
// up out of band, so there is no update or cancel path here.
type Store interface {
	Append(ctx context.Context, b Booking) error
	List(ctx context.Context) ([]Booking, error)
}

// Args are the model-facing arguments for book_test_drive.
type Args struct {
	CustomerName  string `json:"customer_name" jsonschema:"required,description=Customer's full name"`
	ContactPhone  string `json:"contact_phone,omitempty" jsonschema:"description=Phone number for follow-up"`
	ContactEmail  string `json:"contact_email,omitempty" jsonschema:"description=Email address for follow-up"`
	Model         string `json:"model" jsonschema:"required,description=Vehicle model and trim to test drive"`
	PreferredTime string `json:"preferred_time" jsonschema:"required,description=Customer's preferred day and time in their own words"`
}

// NewTool returns the book_test_drive tool backed by store.
func NewTool(store Store) tool.Tool {
	return tool.Tool{
		Name: "book_test_drive",
		Description: "Record a test drive request once the customer has given " +
			"their name, the vehicle they want to drive, a preferred time, and " +
			"at least one way to contact them.",
		Schema: tool.MustArgsSchema[Args](),
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args Args
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("booking: decode args: %w", err)
			}
			if args.ContactPhone == "" && args.ContactEmail == "" {
				return `{"status":"rejected","reason":"need a phone number or an email address to confirm the booking"}`, nil
			}

			b := Booking{
				ID:            uuid.NewString(),
				CustomerName:  args.CustomerName,
				ContactPhone:  args.ContactPhone,
				ContactEmail:  args.ContactEmail,
				Model:         args.Model,
				PreferredTime: args.PreferredTime,
				CreatedAt:     time.Now().UTC(),
			}
			if err := store.Append(ctx, b); err != nil {
				return "", fmt.Errorf("booking: append: %w", err)
			}

			out, err := json.Marshal(map[string]any{
				"status":  "confirmed",
				"booking": b,
			})
			if err != nil {
				return "", fmt.Errorf("booking: encode result: %w", err)
			}
			return string(out), nil
		},
	}
}
