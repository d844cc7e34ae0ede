package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Ping(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockStorage) GetUser(ctx context.Context, userID string) (*User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockStorage) CreateUser(ctx context.Context, user *User) error {
	return m.Called(user).Error(0)
}

// ListCalendars implements the Storage interface
func (m *MockStorage) ListCalendars(ctx context.Context, userID string) ([]Calendar, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Calendar), args.Error(1)
}

func (m *MockStorage) GetCalendar(ctx context.Context, calendarID string) (*Calendar, error) {
	args := m.Called(calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Calendar), args.Error(1)
}

func (m *MockStorage) CreateCalendar(ctx context.Context, cal *Calendar) error {
	return m.Called(cal).Error(0)
}

func (m *MockStorage) UpdateCalendar(ctx context.Context, cal *Calendar) error {
	return m.Called(cal).Error(0)
}

func (m *MockStorage) DeleteCalendar(ctx context.Context, calendarID string) error {
	return m.Called(calendarID).Error(0)
}

func (m *MockStorage) CalendarAccess(ctx context.Context, calendarID, userID string) (Permission, error) {
	args := m.Called(calendarID, userID)
	return args.Get(0).(Permission), args.Error(1)
}

// ListEvents implements the Storage interface
func (m *MockStorage) ListEvents(ctx context.Context, calendarID string) ([]Event, error) {
	args := m.Called(calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockStorage) QueryEvents(ctx context.Context, calendarID string, filter *Filter) ([]Event, error) {
	args := m.Called(calendarID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockStorage) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	args := m.Called(calendarID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

// PutEvent runs check against the mocked current event (the first return
// value of a "CurrentEvent" expectation) before recording the call.
func (m *MockStorage) PutEvent(ctx context.Context, event *Event, check CheckFunc) (bool, error) {
	current := m.currentEvent(event.CalendarID, event.ID)
	if err := check(current); err != nil {
		return false, err
	}
	args := m.Called(event)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) DeleteEvent(ctx context.Context, calendarID, eventID string, check CheckFunc) error {
	current := m.currentEvent(calendarID, eventID)
	if current == nil {
		return ErrNotFound
	}
	if err := check(current); err != nil {
		return err
	}
	return m.Called(calendarID, eventID).Error(0)
}

func (m *MockStorage) currentEvent(calendarID, eventID string) *Event {
	args := m.MethodCalled("CurrentEvent", calendarID, eventID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*Event)
}

func (m *MockStorage) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ListShares(ctx context.Context, calendarID string) ([]Share, error) {
	args := m.Called(calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Share), args.Error(1)
}

func (m *MockStorage) CreateShare(ctx context.Context, share *Share) error {
	return m.Called(share).Error(0)
}

func (m *MockStorage) DeleteShare(ctx context.Context, calendarID, shareID string) error {
	return m.Called(calendarID, shareID).Error(0)
}
