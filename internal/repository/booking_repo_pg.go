package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/jackc/pgx/v5"
)

// BookingRepository is the ledger's view of storage: room occupancy through
// time slots and lab bookings, equipment stock and equipment bookings.
type BookingRepository interface {
	LockRoom(ctx context.Context, roomID int64) (*domain.Room, error)
	ActiveSlots(ctx context.Context, roomID int64, date time.Time) ([]domain.TimeSlot, error)
	ResolveOrCreateSlot(ctx context.Context, roomID int64, slot string) (*domain.TimeSlot, error)
	CreateLabBooking(ctx context.Context, booking *domain.LabBooking) error
	GetLabBookingForUpdate(ctx context.Context, id int64) (*domain.LabBooking, error)
	UpdateLabBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error

	GetEquipment(ctx context.Context, id int64) (*domain.Equipment, error)
	ReserveEquipment(ctx context.Context, equipmentID int64, quantity int) (int, error)
	ReleaseEquipment(ctx context.Context, equipmentID int64, quantity int) error
	HasActiveEquipmentBooking(ctx context.Context, userID, equipmentID int64, date time.Time) (bool, error)
	CreateEquipmentBooking(ctx context.Context, booking *domain.EquipmentBooking) error
	GetEquipmentBookingForUpdate(ctx context.Context, id int64) (*domain.EquipmentBooking, error)
	UpdateEquipmentBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error

	ListByUser(ctx context.Context, userID int64) ([]domain.BookingSummary, error)
	CountByStatus(ctx context.Context, userID int64, status domain.BookingStatus) (int, error)
}

// BookingStore adds transactions on top of BookingRepository. Everything fn
// does through the repository it receives commits or rolls back together.
type BookingStore interface {
	BookingRepository
	InTx(ctx context.Context, fn func(BookingRepository) error) error
}

type PGBookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) BookingStore {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) InTx(ctx context.Context, fn func(BookingRepository) error) error {
	if _, nested := r.db.(pgx.Tx); nested {
		return fn(r)
	}
	beginner, ok := r.db.(txBeginner)
	if !ok {
		return errors.New("repository: connection cannot begin transactions")
	}
	return pgx.BeginTxFunc(ctx, beginner, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&PGBookingRepository{db: tx})
	})
}

// LockRoom takes a row lock on the room for the rest of the transaction.
// Every booking of the room goes through it first, which serialises the
// conflict check and insert per room.
func (r *PGBookingRepository) LockRoom(ctx context.Context, roomID int64) (*domain.Room, error) {
	var room domain.Room
	err := r.db.QueryRow(ctx, `SELECT id, lab_id, room_number FROM rooms WHERE id=$1 FOR UPDATE`, roomID).
		Scan(&room.ID, &room.LabID, &room.RoomNumber)
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (r *PGBookingRepository) ActiveSlots(ctx context.Context, roomID int64, date time.Time) ([]domain.TimeSlot, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT ts.id, ts.room_id, ts.slot, ts.created_at
		FROM time_slots ts
		JOIN lab_bookings lb ON lb.time_slot_id = ts.id
		WHERE ts.room_id=$1 AND lb.booking_date=$2 AND lb.status <> $3
		ORDER BY ts.slot`, roomID, date, domain.BookingStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.TimeSlot, 0)
	for rows.Next() {
		var s domain.TimeSlot
		if err := rows.Scan(&s.ID, &s.RoomID, &s.Slot, &s.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ResolveOrCreateSlot returns the slot row for (roomID, slot), inserting it on
// first use. The unique (room_id, slot) constraint makes concurrent callers
// converge on one row: the loser's insert does nothing and it reads the
// winner's row.
func (r *PGBookingRepository) ResolveOrCreateSlot(ctx context.Context, roomID int64, slot string) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	err := r.db.QueryRow(ctx, `INSERT INTO time_slots (room_id, slot) VALUES ($1, $2)
		ON CONFLICT (room_id, slot) DO NOTHING
		RETURNING id, room_id, slot, created_at`, roomID, slot).
		Scan(&s.ID, &s.RoomID, &s.Slot, &s.CreatedAt)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert time slot: %w", err)
	}

	err = r.db.QueryRow(ctx, `SELECT id, room_id, slot, created_at FROM time_slots WHERE room_id=$1 AND slot=$2`, roomID, slot).
		Scan(&s.ID, &s.RoomID, &s.Slot, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("select time slot: %w", err)
	}
	return &s, nil
}

func (r *PGBookingRepository) CreateLabBooking(ctx context.Context, booking *domain.LabBooking) error {
	if booking.Status == "" {
		booking.Status = domain.BookingStatusPending
	}
	err := r.db.QueryRow(ctx, `INSERT INTO lab_bookings (user_id, room_id, time_slot_id, booking_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`, booking.UserID, booking.RoomID, booking.TimeSlotID, booking.BookingDate, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if name, ok := uniqueConstraint(err); ok && name == constraintActiveLabBooking {
		return ErrSlotTaken
	}
	return err
}

func (r *PGBookingRepository) GetLabBookingForUpdate(ctx context.Context, id int64) (*domain.LabBooking, error) {
	var b domain.LabBooking
	err := r.db.QueryRow(ctx, `SELECT lb.id, lb.user_id, lb.room_id, lb.time_slot_id, ts.slot, lb.booking_date, lb.status, lb.created_at, lb.updated_at
		FROM lab_bookings lb
		JOIN time_slots ts ON ts.id = lb.time_slot_id
		WHERE lb.id=$1
		FOR UPDATE OF lb`, id).
		Scan(&b.ID, &b.UserID, &b.RoomID, &b.TimeSlotID, &b.Slot, &b.BookingDate, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *PGBookingRepository) UpdateLabBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE lab_bookings SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) GetEquipment(ctx context.Context, id int64) (*domain.Equipment, error) {
	var e domain.Equipment
	err := r.db.QueryRow(ctx, `SELECT id, category_id, name, description, quantity, updated_at FROM equipment WHERE id=$1`, id).
		Scan(&e.ID, &e.CategoryID, &e.Name, &e.Description, &e.Quantity, &e.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// ReserveEquipment takes quantity units in one conditional update and returns
// what is left. Stock never goes negative: when fewer units remain the row is
// untouched and ErrInsufficientQuantity is returned.
func (r *PGBookingRepository) ReserveEquipment(ctx context.Context, equipmentID int64, quantity int) (int, error) {
	var remaining int
	err := r.db.QueryRow(ctx, `UPDATE equipment SET quantity = quantity - $2, updated_at = now()
		WHERE id=$1 AND quantity >= $2
		RETURNING quantity`, equipmentID, quantity).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM equipment WHERE id=$1)`, equipmentID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientQuantity
}

func (r *PGBookingRepository) ReleaseEquipment(ctx context.Context, equipmentID int64, quantity int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE equipment SET quantity = quantity + $2, updated_at = now() WHERE id=$1`, equipmentID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGBookingRepository) HasActiveEquipmentBooking(ctx context.Context, userID, equipmentID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM equipment_bookings
		WHERE user_id=$1 AND equipment_id=$2 AND booking_date=$3 AND status <> $4)`,
		userID, equipmentID, date, domain.BookingStatusCancelled).Scan(&exists)
	return exists, err
}

func (r *PGBookingRepository) CreateEquipmentBooking(ctx context.Context, booking *domain.EquipmentBooking) error {
	if booking.Status == "" {
		booking.Status = domain.BookingStatusPending
	}
	err := r.db.QueryRow(ctx, `INSERT INTO equipment_bookings (user_id, equipment_id, quantity, booking_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`, booking.UserID, booking.EquipmentID, booking.Quantity, booking.BookingDate, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if name, ok := uniqueConstraint(err); ok && name == constraintActiveEquipmentBooking {
		return ErrDuplicateBooking
	}
	return err
}

func (r *PGBookingRepository) GetEquipmentBookingForUpdate(ctx context.Context, id int64) (*domain.EquipmentBooking, error) {
	var b domain.EquipmentBooking
	err := r.db.QueryRow(ctx, `SELECT id, user_id, equipment_id, quantity, booking_date, status, created_at, updated_at
		FROM equipment_bookings WHERE id=$1 FOR UPDATE`, id).
		Scan(&b.ID, &b.UserID, &b.EquipmentID, &b.Quantity, &b.BookingDate, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *PGBookingRepository) UpdateEquipmentBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE equipment_bookings SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser merges room and equipment bookings, newest booking date first.
func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.BookingSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT lb.id, 'room', l.name, rm.room_number, '', 0, lb.booking_date, ts.slot, lb.status, lb.created_at
		FROM lab_bookings lb
		JOIN rooms rm ON rm.id = lb.room_id
		JOIN labs l ON l.id = rm.lab_id
		JOIN time_slots ts ON ts.id = lb.time_slot_id
		WHERE lb.user_id = $1
		UNION ALL
		SELECT eb.id, 'equipment', '', '', e.name, eb.quantity, eb.booking_date, NULL, eb.status, eb.created_at
		FROM equipment_bookings eb
		JOIN equipment e ON e.id = eb.equipment_id
		WHERE eb.user_id = $1
		ORDER BY 7 DESC, 10 DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	for rows.Next() {
		var (
			s    domain.BookingSummary
			date time.Time
		)
		if err := rows.Scan(&s.ID, &s.Kind, &s.LabName, &s.RoomNumber, &s.Equipment, &s.Quantity, &date, &s.Time, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Date = date.Format(domain.DateLayout)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *PGBookingRepository) CountByStatus(ctx context.Context, userID int64, status domain.BookingStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM lab_bookings WHERE user_id=$1 AND status=$2) +
		(SELECT COUNT(*) FROM equipment_bookings WHERE user_id=$1 AND status=$2)`, userID, status).Scan(&count)
	return count, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

var _ BookingStore = (*PGBookingRepository)(nil)
