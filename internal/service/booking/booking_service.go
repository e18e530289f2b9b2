package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/kafka"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	"github.com/Caolboy/LABERS-HOST/internal/slot"
	"github.com/Caolboy/LABERS-HOST/internal/validator"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	MakeBooking(ctx context.Context, userID int64, input MakeBookingInput) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID int64, kind domain.ItemKind) error
	BookedSlots(ctx context.Context, roomID int64, date string) ([]domain.TimeSlot, error)
	ListUserBookings(ctx context.Context, userID int64) ([]domain.BookingSummary, error)
	Dashboard(ctx context.Context, userID int64) (*domain.Dashboard, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// CatalogInvalidator drops cached catalog listings whose equipment quantities
// a committed booking or cancellation changed.
type CatalogInvalidator interface {
	InvalidateItems(ctx context.Context) error
}

const defaultPublishTimeout = 5 * time.Second

type BookingService struct {
	store              repository.BookingStore
	users              UserLookup
	producer           Producer
	validate           *validator.Validator
	bookingTopic       string
	notificationsTopic string
	catalog            CatalogInvalidator
	publishTimeout     time.Duration
	publishing         sync.WaitGroup
	location           *time.Location
	now                func() time.Time
	logger             *slog.Logger
}

type TimeSelection struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type SelectedItem struct {
	ID       int64           `json:"id" validate:"required,gt=0"`
	Type     domain.ItemKind `json:"type" validate:"required,oneof=room equipment"`
	Quantity *int            `json:"quantity" validate:"omitempty,gt=0"`
}

// MakeBookingInput is a booking batch as submitted. Room items take their
// interval from RoomTimeSelections when present, else from StartTime/EndTime.
type MakeBookingInput struct {
	Date               string                  `json:"date" validate:"required,datetime=2006-01-02"`
	SelectedItems      []SelectedItem          `json:"selected_items" validate:"required,min=1,dive"`
	StartTime          string                  `json:"start_time"`
	EndTime            string                  `json:"end_time"`
	RoomTimeSelections map[int64]TimeSelection `json:"room_time_selections"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLogger(l *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = l
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithCatalogInvalidator(c CatalogInvalidator) BookingServiceOption {
	return func(s *BookingService) {
		s.catalog = c
	}
}

// WithPublishTimeout bounds how long event publishing may run after the
// request that triggered it has returned.
func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithLocation sets the zone "today" is computed in for the past-date check.
func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewBookingService(
	store repository.BookingStore,
	users UserLookup,
	producer Producer,
	validate *validator.Validator,
	bookingTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		store:          store,
		users:          users,
		producer:       producer,
		validate:       validate,
		bookingTopic:   bookingTopic,
		publishTimeout: defaultPublishTimeout,
		location:       time.UTC,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// MakeBooking reserves every item for the date in one transaction. Either all
// bookings are created or none are and stock is untouched.
func (s *BookingService) MakeBooking(ctx context.Context, userID int64, input MakeBookingInput) ([]domain.Booking, error) {
	date, items, err := s.resolve(input)
	if err != nil {
		return nil, err
	}

	var bookings []domain.Booking
	err = s.store.InTx(ctx, func(repo repository.BookingRepository) error {
		bookings = make([]domain.Booking, 0, len(items))
		ledger := NewLedger(repo, userID, date)
		for _, item := range items {
			b, err := ledger.Reserve(ctx, item)
			if err != nil {
				return err
			}
			bookings = append(bookings, b)
		}
		return nil
	})
	if err != nil {
		return nil, s.failure(ctx, err, "Booking failed. Please try again.",
			"user_id", userID, "date", input.Date, "items", len(items))
	}

	s.logger.InfoContext(ctx, "booking batch committed", "user_id", userID, "date", input.Date, "items", len(bookings))
	s.invalidateCatalog(ctx, bookings)
	s.publish(ctx, kafka.EventBookingCreated, userID, input.Date, bookings)
	return bookings, nil
}

// CancelBooking cancels one of the user's bookings. Cancelling a booking that
// is already cancelled succeeds without side effects.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID int64, kind domain.ItemKind) error {
	if bookingID <= 0 {
		return apperrors.Validation("id", "The id field must be greater than 0.")
	}

	var (
		cancelled *domain.Booking
		date      string
	)
	err := s.store.InTx(ctx, func(repo repository.BookingRepository) error {
		ledger := NewLedger(repo, userID, time.Time{})
		switch kind {
		case domain.ItemKindRoom:
			b, changed, err := ledger.CancelRoom(ctx, bookingID)
			if err != nil || !changed {
				return err
			}
			cancelled = &domain.Booking{Kind: kind, Room: b}
			date = b.BookingDate.Format(domain.DateLayout)
		case domain.ItemKindEquipment:
			b, changed, err := ledger.CancelEquipment(ctx, bookingID)
			if err != nil || !changed {
				return err
			}
			cancelled = &domain.Booking{Kind: kind, Equipment: b}
			date = b.BookingDate.Format(domain.DateLayout)
		default:
			return apperrors.Validation("type", "The selected type is invalid.")
		}
		return nil
	})
	if err != nil {
		return s.failure(ctx, err, "Could not cancel booking.", "user_id", userID, "booking_id", bookingID, "type", kind)
	}

	if cancelled != nil {
		s.logger.InfoContext(ctx, "booking cancelled", "user_id", userID, "booking_id", bookingID, "type", kind)
		s.invalidateCatalog(ctx, []domain.Booking{*cancelled})
		s.publish(ctx, kafka.EventBookingCancelled, userID, date, []domain.Booking{*cancelled})
	}
	return nil
}

func (s *BookingService) BookedSlots(ctx context.Context, roomID int64, date string) ([]domain.TimeSlot, error) {
	if roomID <= 0 {
		return nil, apperrors.Validation("room_id", "The room_id field must be greater than 0.")
	}
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, apperrors.Validation("date", "The date field must match the format 2006-01-02.")
	}
	slots, err := s.store.ActiveSlots(ctx, roomID, day)
	if err != nil {
		return nil, s.failure(ctx, err, "Could not load booked slots.", "room_id", roomID, "date", date)
	}
	return slots, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]domain.BookingSummary, error) {
	bookings, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.failure(ctx, err, "Could not load bookings.", "user_id", userID)
	}
	return bookings, nil
}

func (s *BookingService) Dashboard(ctx context.Context, userID int64) (*domain.Dashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, s.failure(ctx, err, "Could not load dashboard.", "user_id", userID)
	}
	pending, err := s.store.CountByStatus(ctx, userID, domain.BookingStatusPending)
	if err != nil {
		return nil, s.failure(ctx, err, "Could not load dashboard.", "user_id", userID)
	}
	return &domain.Dashboard{UserName: user.Name, PendingBookingsCount: pending}, nil
}

// resolve validates the batch and turns it into booking items. Nothing is
// read or written before it succeeds.
func (s *BookingService) resolve(input MakeBookingInput) (time.Time, []domain.BookingItem, error) {
	if s.validate != nil {
		if err := s.validate.Struct(input); err != nil {
			return time.Time{}, nil, err
		}
	}

	date, err := time.Parse(domain.DateLayout, input.Date)
	if err != nil {
		return time.Time{}, nil, apperrors.Validation("date", "The date field must match the format 2006-01-02.")
	}
	if date.Before(s.today()) {
		return time.Time{}, nil, apperrors.Validation("date", "The date field must be a date after or equal to today.")
	}
	if len(input.SelectedItems) == 0 {
		return time.Time{}, nil, apperrors.Validation("selected_items", "The selected_items field is required.")
	}

	items := make([]domain.BookingItem, 0, len(input.SelectedItems))
	for i, selected := range input.SelectedItems {
		field := fmt.Sprintf("selected_items[%d]", i)
		if selected.ID <= 0 {
			return time.Time{}, nil, apperrors.Validation(field+".id", "The id field must be greater than 0.")
		}

		switch selected.Type {
		case domain.ItemKindRoom:
			interval, err := input.interval(selected.ID)
			if err != nil {
				return time.Time{}, nil, err
			}
			items = append(items, domain.RoomItem(selected.ID, interval))
		case domain.ItemKindEquipment:
			quantity := 1
			if selected.Quantity != nil {
				quantity = *selected.Quantity
			}
			if quantity <= 0 {
				return time.Time{}, nil, apperrors.Validation(field+".quantity", "The quantity field must be greater than 0.")
			}
			items = append(items, domain.EquipmentItem(selected.ID, quantity))
		default:
			return time.Time{}, nil, apperrors.Validation(field+".type", "The selected type is invalid.")
		}
	}
	return date, items, nil
}

func (in MakeBookingInput) interval(roomID int64) (slot.Interval, error) {
	var start, end string
	if sel, ok := in.RoomTimeSelections[roomID]; ok {
		start, end = sel.StartTime, sel.EndTime
	}
	if start == "" || end == "" {
		start, end = in.StartTime, in.EndTime
	}
	if start == "" || end == "" {
		return slot.Interval{}, apperrors.Validation("start_time", "Start time and end time are required for room booking.")
	}
	interval, err := slot.NewInterval(start, end)
	if err != nil {
		return slot.Interval{}, apperrors.Validation("end_time", fmt.Sprintf("Invalid time range for room %d: %v.", roomID, err))
	}
	return interval, nil
}

func (s *BookingService) today() time.Time {
	y, m, d := s.now().In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// failure passes domain errors through and logs anything else, replacing it
// with a generic message.
func (s *BookingService) failure(ctx context.Context, err error, message string, attrs ...any) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.logger.ErrorContext(ctx, message, append(attrs, "error", err)...)
	return apperrors.Internal(message, err)
}

// publish sends the event in the background on a context detached from the
// request, so a slow or unreachable broker never delays the response. Failures
// are logged only.
func (s *BookingService) publish(ctx context.Context, eventType string, userID int64, date string, bookings []domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Date:       date,
		Items:      eventItems(bookings),
		OccurredAt: s.now(),
	}
	key := strconv.FormatInt(userID, 10)

	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()

		if err := s.producer.Publish(pubCtx, s.bookingTopic, key, event); err != nil {
			s.logger.WarnContext(pubCtx, "failed to publish booking event", "type", eventType, "event_id", event.ID, "error", err)
			return
		}
		if s.notificationsTopic != "" {
			if err := s.producer.Publish(pubCtx, s.notificationsTopic, key, event); err != nil {
				s.logger.WarnContext(pubCtx, "failed to publish notification", "type", eventType, "event_id", event.ID, "error", err)
			}
		}
	}()
}

// Wait blocks until events still being published have been sent or given up.
func (s *BookingService) Wait() {
	s.publishing.Wait()
}

func (s *BookingService) invalidateCatalog(ctx context.Context, bookings []domain.Booking) {
	if s.catalog == nil {
		return
	}
	for _, b := range bookings {
		if b.Equipment == nil {
			continue
		}
		if err := s.catalog.InvalidateItems(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate catalog cache", "error", err)
		}
		return
	}
}

func eventItems(bookings []domain.Booking) []kafka.EventItem {
	items := make([]kafka.EventItem, 0, len(bookings))
	for _, b := range bookings {
		switch {
		case b.Room != nil:
			items = append(items, kafka.EventItem{
				BookingID: b.Room.ID,
				Kind:      string(domain.ItemKindRoom),
				ItemID:    b.Room.RoomID,
				Slot:      b.Room.Slot,
				Status:    string(b.Room.Status),
			})
		case b.Equipment != nil:
			items = append(items, kafka.EventItem{
				BookingID: b.Equipment.ID,
				Kind:      string(domain.ItemKindEquipment),
				ItemID:    b.Equipment.EquipmentID,
				Quantity:  b.Equipment.Quantity,
				Status:    string(b.Equipment.Status),
			})
		}
	}
	return items
}

var _ BookingUseCase = (*BookingService)(nil)
