package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
)

// memState is an in-memory booking database. It enforces the same unique
// rules as the SQL schema.
type memState struct {
	nextID      int64
	rooms       map[int64]domain.Room
	equipment   map[int64]domain.Equipment
	slots       []domain.TimeSlot
	labBookings []domain.LabBooking
	eqBookings  []domain.EquipmentBooking
}

func (m *memState) clone() *memState {
	c := &memState{
		nextID:      m.nextID,
		rooms:       make(map[int64]domain.Room, len(m.rooms)),
		equipment:   make(map[int64]domain.Equipment, len(m.equipment)),
		slots:       append([]domain.TimeSlot(nil), m.slots...),
		labBookings: append([]domain.LabBooking(nil), m.labBookings...),
		eqBookings:  append([]domain.EquipmentBooking(nil), m.eqBookings...),
	}
	for k, v := range m.rooms {
		c.rooms[k] = v
	}
	for k, v := range m.equipment {
		c.equipment[k] = v
	}
	return c
}

func (m *memState) id() int64 {
	m.nextID++
	return m.nextID
}

// memStore runs each transaction against a copy of the state and swaps it in
// on commit. Transactions are serialised by mu.
type memStore struct {
	mu    sync.Mutex
	state *memState
	txErr error
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		rooms:     map[int64]domain.Room{},
		equipment: map[int64]domain.Equipment{},
	}}
}

func (s *memStore) addRoom(id int64, number string) {
	s.state.rooms[id] = domain.Room{ID: id, LabID: 1, RoomNumber: number}
}

func (s *memStore) addEquipment(id int64, name string, quantity int) {
	s.state.equipment[id] = domain.Equipment{ID: id, CategoryID: 1, Name: name, Quantity: quantity}
}

func (s *memStore) quantity(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.equipment[id].Quantity
}

func (s *memStore) InTx(ctx context.Context, fn func(repository.BookingRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		return s.txErr
	}
	work := s.state.clone()
	if err := fn(&memRepo{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) repo() *memRepo {
	return &memRepo{state: s.state}
}

func (s *memStore) LockRoom(ctx context.Context, roomID int64) (*domain.Room, error) {
	return s.repo().LockRoom(ctx, roomID)
}

func (s *memStore) ActiveSlots(ctx context.Context, roomID int64, date time.Time) ([]domain.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ActiveSlots(ctx, roomID, date)
}

func (s *memStore) ResolveOrCreateSlot(ctx context.Context, roomID int64, slot string) (*domain.TimeSlot, error) {
	return s.repo().ResolveOrCreateSlot(ctx, roomID, slot)
}

func (s *memStore) CreateLabBooking(ctx context.Context, booking *domain.LabBooking) error {
	return s.repo().CreateLabBooking(ctx, booking)
}

func (s *memStore) GetLabBookingForUpdate(ctx context.Context, id int64) (*domain.LabBooking, error) {
	return s.repo().GetLabBookingForUpdate(ctx, id)
}

func (s *memStore) UpdateLabBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	return s.repo().UpdateLabBookingStatus(ctx, id, status)
}

func (s *memStore) GetEquipment(ctx context.Context, id int64) (*domain.Equipment, error) {
	return s.repo().GetEquipment(ctx, id)
}

func (s *memStore) ReserveEquipment(ctx context.Context, equipmentID int64, quantity int) (int, error) {
	return s.repo().ReserveEquipment(ctx, equipmentID, quantity)
}

func (s *memStore) ReleaseEquipment(ctx context.Context, equipmentID int64, quantity int) error {
	return s.repo().ReleaseEquipment(ctx, equipmentID, quantity)
}

func (s *memStore) HasActiveEquipmentBooking(ctx context.Context, userID, equipmentID int64, date time.Time) (bool, error) {
	return s.repo().HasActiveEquipmentBooking(ctx, userID, equipmentID, date)
}

func (s *memStore) CreateEquipmentBooking(ctx context.Context, booking *domain.EquipmentBooking) error {
	return s.repo().CreateEquipmentBooking(ctx, booking)
}

func (s *memStore) GetEquipmentBookingForUpdate(ctx context.Context, id int64) (*domain.EquipmentBooking, error) {
	return s.repo().GetEquipmentBookingForUpdate(ctx, id)
}

func (s *memStore) UpdateEquipmentBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	return s.repo().UpdateEquipmentBookingStatus(ctx, id, status)
}

func (s *memStore) ListByUser(ctx context.Context, userID int64) ([]domain.BookingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListByUser(ctx, userID)
}

func (s *memStore) CountByStatus(ctx context.Context, userID int64, status domain.BookingStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CountByStatus(ctx, userID, status)
}

type memRepo struct {
	state *memState
}

func (r *memRepo) LockRoom(_ context.Context, roomID int64) (*domain.Room, error) {
	room, ok := r.state.rooms[roomID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &room, nil
}

func (r *memRepo) ActiveSlots(_ context.Context, roomID int64, date time.Time) ([]domain.TimeSlot, error) {
	seen := map[int64]bool{}
	for _, b := range r.state.labBookings {
		if b.RoomID == roomID && b.BookingDate.Equal(date) && b.Status != domain.BookingStatusCancelled {
			seen[b.TimeSlotID] = true
		}
	}
	slots := make([]domain.TimeSlot, 0)
	for _, s := range r.state.slots {
		if seen[s.ID] {
			slots = append(slots, s)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Slot < slots[j].Slot })
	return slots, nil
}

func (r *memRepo) ResolveOrCreateSlot(_ context.Context, roomID int64, slot string) (*domain.TimeSlot, error) {
	for _, s := range r.state.slots {
		if s.RoomID == roomID && s.Slot == slot {
			found := s
			return &found, nil
		}
	}
	s := domain.TimeSlot{ID: r.state.id(), RoomID: roomID, Slot: slot}
	r.state.slots = append(r.state.slots, s)
	return &s, nil
}

func (r *memRepo) CreateLabBooking(_ context.Context, booking *domain.LabBooking) error {
	for _, b := range r.state.labBookings {
		if b.RoomID == booking.RoomID && b.TimeSlotID == booking.TimeSlotID &&
			b.BookingDate.Equal(booking.BookingDate) && b.Status != domain.BookingStatusCancelled {
			return repository.ErrSlotTaken
		}
	}
	booking.ID = r.state.id()
	r.state.labBookings = append(r.state.labBookings, *booking)
	return nil
}

func (r *memRepo) GetLabBookingForUpdate(_ context.Context, id int64) (*domain.LabBooking, error) {
	for _, b := range r.state.labBookings {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) UpdateLabBookingStatus(_ context.Context, id int64, status domain.BookingStatus) error {
	for i := range r.state.labBookings {
		if r.state.labBookings[i].ID == id {
			r.state.labBookings[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memRepo) GetEquipment(_ context.Context, id int64) (*domain.Equipment, error) {
	e, ok := r.state.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *memRepo) ReserveEquipment(_ context.Context, equipmentID int64, quantity int) (int, error) {
	e, ok := r.state.equipment[equipmentID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if e.Quantity < quantity {
		return 0, repository.ErrInsufficientQuantity
	}
	e.Quantity -= quantity
	r.state.equipment[equipmentID] = e
	return e.Quantity, nil
}

func (r *memRepo) ReleaseEquipment(_ context.Context, equipmentID int64, quantity int) error {
	e, ok := r.state.equipment[equipmentID]
	if !ok {
		return repository.ErrNotFound
	}
	e.Quantity += quantity
	r.state.equipment[equipmentID] = e
	return nil
}

func (r *memRepo) HasActiveEquipmentBooking(_ context.Context, userID, equipmentID int64, date time.Time) (bool, error) {
	for _, b := range r.state.eqBookings {
		if b.UserID == userID && b.EquipmentID == equipmentID && b.BookingDate.Equal(date) && b.Status != domain.BookingStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) CreateEquipmentBooking(ctx context.Context, booking *domain.EquipmentBooking) error {
	if dup, _ := r.HasActiveEquipmentBooking(ctx, booking.UserID, booking.EquipmentID, booking.BookingDate); dup {
		return repository.ErrDuplicateBooking
	}
	booking.ID = r.state.id()
	r.state.eqBookings = append(r.state.eqBookings, *booking)
	return nil
}

func (r *memRepo) GetEquipmentBookingForUpdate(_ context.Context, id int64) (*domain.EquipmentBooking, error) {
	for _, b := range r.state.eqBookings {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) UpdateEquipmentBookingStatus(_ context.Context, id int64, status domain.BookingStatus) error {
	for i := range r.state.eqBookings {
		if r.state.eqBookings[i].ID == id {
			r.state.eqBookings[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memRepo) ListByUser(_ context.Context, userID int64) ([]domain.BookingSummary, error) {
	out := make([]domain.BookingSummary, 0)
	for _, b := range r.state.labBookings {
		if b.UserID == userID {
			slot := b.Slot
			out = append(out, domain.BookingSummary{ID: b.ID, Kind: domain.ItemKindRoom,
				RoomNumber: r.state.rooms[b.RoomID].RoomNumber, Date: b.BookingDate.Format(domain.DateLayout), Time: &slot, Status: b.Status})
		}
	}
	for _, b := range r.state.eqBookings {
		if b.UserID == userID {
			out = append(out, domain.BookingSummary{ID: b.ID, Kind: domain.ItemKindEquipment,
				Equipment: r.state.equipment[b.EquipmentID].Name, Quantity: b.Quantity, Date: b.BookingDate.Format(domain.DateLayout), Status: b.Status})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *memRepo) CountByStatus(_ context.Context, userID int64, status domain.BookingStatus) (int, error) {
	n := 0
	for _, b := range r.state.labBookings {
		if b.UserID == userID && b.Status == status {
			n++
		}
	}
	for _, b := range r.state.eqBookings {
		if b.UserID == userID && b.Status == status {
			n++
		}
	}
	return n, nil
}

var (
	_ repository.BookingStore      = (*memStore)(nil)
	_ repository.BookingRepository = (*memRepo)(nil)
)
