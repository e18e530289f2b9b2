package domain

import (
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/slot"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type ItemKind string

const (
	ItemKindRoom      ItemKind = "room"
	ItemKindEquipment ItemKind = "equipment"
)

// DateLayout is the wire and storage format of a booking date.
const DateLayout = "2006-01-02"

type LabBooking struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	RoomID      int64         `json:"room_id"`
	TimeSlotID  int64         `json:"time_slot_id"`
	Slot        string        `json:"time_slot"`
	BookingDate time.Time     `json:"-"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type EquipmentBooking struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	EquipmentID int64         `json:"equipment_id"`
	Quantity    int           `json:"quantity"`
	BookingDate time.Time     `json:"-"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BookingItem is one resolved entry of a booking batch: a room for an
// interval, or a quantity of equipment. Exactly one of the two shapes is
// meaningful, selected by Kind.
type BookingItem struct {
	Kind     ItemKind
	ID       int64
	Interval slot.Interval
	Quantity int
}

func RoomItem(id int64, interval slot.Interval) BookingItem {
	return BookingItem{Kind: ItemKindRoom, ID: id, Interval: interval}
}

func EquipmentItem(id int64, quantity int) BookingItem {
	return BookingItem{Kind: ItemKindEquipment, ID: id, Quantity: quantity}
}

// Booking is the result of one committed batch item.
type Booking struct {
	Kind      ItemKind          `json:"type"`
	Room      *LabBooking       `json:"room,omitempty"`
	Equipment *EquipmentBooking `json:"equipment,omitempty"`
}

// BookingSummary is a row of a user's booking history, covering both kinds.
type BookingSummary struct {
	ID         int64         `json:"id"`
	Kind       ItemKind      `json:"type"`
	LabName    string        `json:"lab_name,omitempty"`
	RoomNumber string        `json:"room_number,omitempty"`
	Equipment  string        `json:"equipment,omitempty"`
	Quantity   int           `json:"quantity,omitempty"`
	Date       string        `json:"date"`
	Time       *string       `json:"time"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Dashboard struct {
	UserName             string `json:"user_name"`
	PendingBookingsCount int    `json:"pending_bookings_count"`
}
