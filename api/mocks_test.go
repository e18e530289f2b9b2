package api

import (
	"context"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/service/auth"
	"github.com/Caolboy/LABERS-HOST/internal/service/booking"
	"github.com/Caolboy/LABERS-HOST/internal/service/registration"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) MakeBooking(ctx context.Context, userID int64, input booking.MakeBookingInput) ([]domain.Booking, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, userID, bookingID int64, kind domain.ItemKind) error {
	args := m.Called(ctx, userID, bookingID, kind)
	return args.Error(0)
}

func (m *MockBookingUseCase) BookedSlots(ctx context.Context, roomID int64, date string) ([]domain.TimeSlot, error) {
	args := m.Called(ctx, roomID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimeSlot), args.Error(1)
}

func (m *MockBookingUseCase) ListUserBookings(ctx context.Context, userID int64) ([]domain.BookingSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookingSummary), args.Error(1)
}

func (m *MockBookingUseCase) Dashboard(ctx context.Context, userID int64) (*domain.Dashboard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

type MockCatalogUseCase struct {
	mock.Mock
}

func (m *MockCatalogUseCase) Categories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockCatalogUseCase) Items(ctx context.Context, categoryID int64) ([]domain.CatalogItem, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CatalogItem), args.Error(1)
}

type MockAuthUseCase struct {
	mock.Mock
}

func (m *MockAuthUseCase) Login(ctx context.Context, input auth.LoginInput) (*auth.Token, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Token), args.Error(1)
}

func (m *MockAuthUseCase) ParseToken(token string) (int64, error) {
	args := m.Called(token)
	return args.Get(0).(int64), args.Error(1)
}

type MockRegistrationUseCase struct {
	mock.Mock
}

func (m *MockRegistrationUseCase) Start(ctx context.Context, input registration.StartInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockRegistrationUseCase) Resend(ctx context.Context, input registration.ResendInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockRegistrationUseCase) Verify(ctx context.Context, input registration.VerifyInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
