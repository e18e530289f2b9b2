package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	"github.com/Caolboy/LABERS-HOST/internal/slot"
)

// Ledger applies reservations and releases for one user through a repository
// bound to an open transaction. The date only matters for reservations. Domain conflicts come back as
// *apperrors.Error; anything else is a storage failure.
type Ledger struct {
	repo   repository.BookingRepository
	userID int64
	date   time.Time
}

func NewLedger(repo repository.BookingRepository, userID int64, date time.Time) *Ledger {
	return &Ledger{repo: repo, userID: userID, date: date}
}

func (l *Ledger) dateString() string {
	return l.date.Format(domain.DateLayout)
}

// ReserveRoom books the room for interval. An identical active slot on the
// date is SlotTaken, an overlapping one is SlotConflict.
func (l *Ledger) ReserveRoom(ctx context.Context, roomID int64, interval slot.Interval) (*domain.LabBooking, error) {
	if _, err := l.repo.LockRoom(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Room")
		}
		return nil, fmt.Errorf("lock room %d: %w", roomID, err)
	}

	active, err := l.repo.ActiveSlots(ctx, roomID, l.date)
	if err != nil {
		return nil, fmt.Errorf("active slots for room %d: %w", roomID, err)
	}
	requested := interval.String()
	for _, s := range active {
		if s.Slot == requested {
			return nil, apperrors.SlotTaken(requested, l.dateString())
		}
	}
	for _, s := range active {
		existing, err := slot.Parse(s.Slot)
		if err != nil {
			return nil, fmt.Errorf("stored time slot %d: %w", s.ID, err)
		}
		if slot.Overlaps(interval, existing) {
			return nil, apperrors.SlotConflict(requested, s.Slot)
		}
	}

	ts, err := l.repo.ResolveOrCreateSlot(ctx, roomID, requested)
	if err != nil {
		return nil, err
	}

	booking := &domain.LabBooking{
		UserID:      l.userID,
		RoomID:      roomID,
		TimeSlotID:  ts.ID,
		Slot:        ts.Slot,
		BookingDate: l.date,
		Status:      domain.BookingStatusPending,
	}
	if err := l.repo.CreateLabBooking(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperrors.SlotTaken(requested, l.dateString())
		}
		return nil, fmt.Errorf("create lab booking: %w", err)
	}
	return booking, nil
}

// ReserveEquipment takes quantity units of the equipment for the date. A user
// holds at most one active booking per equipment and date.
func (l *Ledger) ReserveEquipment(ctx context.Context, equipmentID int64, quantity int) (*domain.EquipmentBooking, error) {
	equipment, err := l.repo.GetEquipment(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Equipment")
		}
		return nil, fmt.Errorf("get equipment %d: %w", equipmentID, err)
	}
	if equipment.Quantity < quantity {
		return nil, apperrors.InsufficientQuantity(equipment.Name, equipment.Quantity, quantity)
	}

	duplicate, err := l.repo.HasActiveEquipmentBooking(ctx, l.userID, equipmentID, l.date)
	if err != nil {
		return nil, fmt.Errorf("check equipment booking: %w", err)
	}
	if duplicate {
		return nil, apperrors.DuplicateBooking(equipment.Name, l.dateString())
	}

	if _, err := l.repo.ReserveEquipment(ctx, equipmentID, quantity); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientQuantity):
			// Another transaction took the stock after the read above.
			current, getErr := l.repo.GetEquipment(ctx, equipmentID)
			if getErr != nil {
				return nil, fmt.Errorf("get equipment %d: %w", equipmentID, getErr)
			}
			return nil, apperrors.InsufficientQuantity(equipment.Name, current.Quantity, quantity)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("Equipment")
		}
		return nil, fmt.Errorf("reserve equipment %d: %w", equipmentID, err)
	}

	booking := &domain.EquipmentBooking{
		UserID:      l.userID,
		EquipmentID: equipmentID,
		Quantity:    quantity,
		BookingDate: l.date,
		Status:      domain.BookingStatusPending,
	}
	if err := l.repo.CreateEquipmentBooking(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrDuplicateBooking) {
			return nil, apperrors.DuplicateBooking(equipment.Name, l.dateString())
		}
		return nil, fmt.Errorf("create equipment booking: %w", err)
	}
	return booking, nil
}

// Reserve dispatches item to the room or equipment reservation.
func (l *Ledger) Reserve(ctx context.Context, item domain.BookingItem) (domain.Booking, error) {
	switch item.Kind {
	case domain.ItemKindRoom:
		b, err := l.ReserveRoom(ctx, item.ID, item.Interval)
		if err != nil {
			return domain.Booking{}, err
		}
		return domain.Booking{Kind: domain.ItemKindRoom, Room: b}, nil
	case domain.ItemKindEquipment:
		b, err := l.ReserveEquipment(ctx, item.ID, item.Quantity)
		if err != nil {
			return domain.Booking{}, err
		}
		return domain.Booking{Kind: domain.ItemKindEquipment, Equipment: b}, nil
	default:
		return domain.Booking{}, apperrors.Validation("type", "The selected type is invalid.")
	}
}

// CancelRoom marks the user's room booking cancelled, which frees its slot
// for the date. It reports whether anything changed.
func (l *Ledger) CancelRoom(ctx context.Context, bookingID int64) (*domain.LabBooking, bool, error) {
	b, err := l.repo.GetLabBookingForUpdate(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, apperrors.NotFound("Booking")
		}
		return nil, false, fmt.Errorf("get lab booking %d: %w", bookingID, err)
	}
	if b.UserID != l.userID {
		return nil, false, apperrors.Forbidden("You cannot cancel this booking.")
	}
	if b.Status == domain.BookingStatusCancelled {
		return b, false, nil
	}
	if err := l.repo.UpdateLabBookingStatus(ctx, b.ID, domain.BookingStatusCancelled); err != nil {
		return nil, false, fmt.Errorf("cancel lab booking %d: %w", b.ID, err)
	}
	b.Status = domain.BookingStatusCancelled
	return b, true, nil
}

// CancelEquipment marks the user's equipment booking cancelled and returns
// its quantity to stock. A booking already cancelled is left alone so stock
// is released once.
func (l *Ledger) CancelEquipment(ctx context.Context, bookingID int64) (*domain.EquipmentBooking, bool, error) {
	b, err := l.repo.GetEquipmentBookingForUpdate(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, apperrors.NotFound("Booking")
		}
		return nil, false, fmt.Errorf("get equipment booking %d: %w", bookingID, err)
	}
	if b.UserID != l.userID {
		return nil, false, apperrors.Forbidden("You cannot cancel this booking.")
	}
	if b.Status == domain.BookingStatusCancelled {
		return b, false, nil
	}
	if err := l.ReleaseEquipment(ctx, b.EquipmentID, b.Quantity); err != nil {
		return nil, false, err
	}
	if err := l.repo.UpdateEquipmentBookingStatus(ctx, b.ID, domain.BookingStatusCancelled); err != nil {
		return nil, false, fmt.Errorf("cancel equipment booking %d: %w", b.ID, err)
	}
	b.Status = domain.BookingStatusCancelled
	return b, true, nil
}

// ReleaseEquipment returns quantity units to stock. Each successful
// reservation is released at most once.
func (l *Ledger) ReleaseEquipment(ctx context.Context, equipmentID int64, quantity int) error {
	if err := l.repo.ReleaseEquipment(ctx, equipmentID, quantity); err != nil {
		return fmt.Errorf("release equipment %d: %w", equipmentID, err)
	}
	return nil
}
