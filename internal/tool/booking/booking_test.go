package booking

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestBookTestDriveRecordsBooking(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	tl := NewTool(store)

	out, err := tl.Handler(context.Background(), `{
		"customer_name": "Alex",
		"contact_phone": "111-111-1111",
		"contact_email": "alex@example.com",
		"model": "Skyline Aurora EX",
		"preferred_time": "tomorrow 8 pm"
	}`)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var result struct {
		Status  string  `json:"status"`
		Booking Booking `json:"booking"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != "confirmed" {
		t.Errorf("status = %q, want confirmed", result.Status)
	}
	if result.Booking.ID == "" {
		t.Error("booking has no ID")
	}

	bookings, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("store holds %d bookings, want 1", len(bookings))
	}
	got := bookings[0]
	if got.CustomerName != "Alex" {
		t.Errorf("customer name = %q", got.CustomerName)
	}
	if got.Model != "Skyline Aurora EX" {
		t.Errorf("model = %q", got.Model)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

func TestBookTestDriveRequiresContact(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	tl := NewTool(store)

	out, err := tl.Handler(context.Background(), `{
		"customer_name": "Alex",
		"model": "Skyline Horizon Sport",
		"preferred_time": "saturday morning"
	}`)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !strings.Contains(out, "rejected") {
		t.Errorf("result = %q, want rejection", out)
	}

	bookings, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("store holds %d bookings, want 0", len(bookings))
	}
}

func TestMemStoreAppendIsOrdered(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	for _, name := range []string{"first", "second", "third"} {
		if err := store.Append(context.Background(), Booking{CustomerName: name}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	bookings, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for i, name := range []string{"first", "second", "third"} {
		if bookings[i].CustomerName != name {
			t.Errorf("booking %d = %q, want %q", i, bookings[i].CustomerName, name)
		}
	}
}
