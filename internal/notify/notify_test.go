package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/email"
	"github.com/Caolboy/LABERS-HOST/internal/kafka"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func eventMessage(t *testing.T, event kafka.BookingEvent) kafkaGo.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkaGo.Message{Value: raw}
}

func newTestNotifier(users UserLookup, mailer email.Mailer, opts ...Option) *Notifier {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewNotifier(users, mailer, "Your LABERS Booking", opts...)
}

func TestHandle_BookingCreatedSendsMail(t *testing.T) {
	users := &MockUsers{}
	mailer := &MockMailer{}
	n := newTestNotifier(users, mailer)
	ctx := context.Background()

	event := kafka.BookingEvent{
		ID:     "evt-1",
		Type:   kafka.EventBookingCreated,
		UserID: 7,
		Date:   "2025-06-01",
		Items:  []kafka.EventItem{{BookingID: 1, Kind: "room", ItemID: 3, Slot: "09:00-10:00", Status: "pending"}},
	}
	users.On("GetByID", ctx, int64(7)).Return(&domain.User{ID: 7, Name: "Ada", Email: "ada@uni.edu"}, nil)
	mailer.On("Send", ctx, mock.MatchedBy(func(msg email.Message) bool {
		return msg.To == "ada@uni.edu" &&
			msg.Template == email.TemplateBookingMade &&
			msg.Subject == "Your LABERS Booking" &&
			msg.Vars["name"] == "Ada" &&
			msg.Vars["date"] == "2025-06-01"
	})).Return(nil)

	require.NoError(t, n.Handle(ctx, eventMessage(t, event)))
	mailer.AssertExpectations(t)
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	users := &MockUsers{}
	mailer := &MockMailer{}
	n := newTestNotifier(users, mailer)

	require.NoError(t, n.Handle(context.Background(), eventMessage(t, kafka.BookingEvent{Type: kafka.EventBookingCancelled, UserID: 1})))
	require.NoError(t, n.Handle(context.Background(), kafkaGo.Message{Value: []byte("not json")}))

	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandle_RetriesDelivery(t *testing.T) {
	users := &MockUsers{}
	mailer := &MockMailer{}
	n := newTestNotifier(users, mailer, WithRetries(3, time.Millisecond))
	ctx := context.Background()

	users.On("GetByID", ctx, int64(7)).Return(&domain.User{ID: 7, Email: "ada@uni.edu"}, nil)
	mailer.On("Send", ctx, mock.Anything).Return(errors.New("smtp down")).Twice()
	mailer.On("Send", ctx, mock.Anything).Return(nil).Once()

	require.NoError(t, n.Handle(ctx, eventMessage(t, kafka.BookingEvent{Type: kafka.EventBookingCreated, UserID: 7})))
	mailer.AssertNumberOfCalls(t, "Send", 3)
}

func TestHandle_FailuresDoNotStopConsumer(t *testing.T) {
	users := &MockUsers{}
	mailer := &MockMailer{}
	n := newTestNotifier(users, mailer, WithRetries(2, time.Millisecond))
	ctx := context.Background()

	users.On("GetByID", ctx, int64(404)).Return(nil, repository.ErrNotFound)
	users.On("GetByID", ctx, int64(7)).Return(&domain.User{ID: 7, Email: "ada@uni.edu"}, nil)
	mailer.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))

	assert.NoError(t, n.Handle(ctx, eventMessage(t, kafka.BookingEvent{Type: kafka.EventBookingCreated, UserID: 404})))
	assert.NoError(t, n.Handle(ctx, eventMessage(t, kafka.BookingEvent{Type: kafka.EventBookingCreated, UserID: 7})))
	mailer.AssertNumberOfCalls(t, "Send", 2)
}

func TestHandle_CancelledContext(t *testing.T) {
	users := &MockUsers{}
	mailer := &MockMailer{}
	n := newTestNotifier(users, mailer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	users.On("GetByID", ctx, int64(7)).Return(nil, context.Canceled)

	err := n.Handle(ctx, eventMessage(t, kafka.BookingEvent{Type: kafka.EventBookingCreated, UserID: 7}))
	assert.ErrorIs(t, err, context.Canceled)
}
