package domain

import "time"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Lab struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Room struct {
	ID         int64  `json:"id"`
	LabID      int64  `json:"lab_id"`
	RoomNumber string `json:"room_number"`
}

type Equipment struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimeSlot is created lazily the first time a room is booked for an interval
// and reused afterwards; (RoomID, Slot) is unique.
type TimeSlot struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	Slot      string    `json:"slot"`
	CreatedAt time.Time `json:"-"`
}

// CatalogItem is a bookable room or equipment as listed for a category.
type CatalogItem struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Kind              ItemKind `json:"type"`
	LabName           *string  `json:"lab_name"`
	LabDescription    *string  `json:"lab_description"`
	Description       *string  `json:"description"`
	AvailableQuantity *int     `json:"available_quantity,omitempty"`
}
