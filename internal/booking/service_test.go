package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loungebook/internal/model"
	"loungebook/internal/schedule"
)

type mockScheduleStore struct {
	mock.Mock
}

func (m *mockScheduleStore) Rows(ctx context.Context, kind model.ResourceKind, stationID string) ([]schedule.Row, []schedule.Row, error) {
	args := m.Called(ctx, kind, stationID)
	var specific, global []schedule.Row
	if args.Get(0) != nil {
		specific = args.Get(0).([]schedule.Row)
	}
	if args.Get(1) != nil {
		global = args.Get(1).([]schedule.Row)
	}
	return specific, global, args.Error(2)
}

type mockReservationStore struct {
	mock.Mock
}

func (m *mockReservationStore) Blocking(ctx context.Context, kind model.ResourceKind, stationID string, from, to time.Time) ([]model.Reservation, error) {
	args := m.Called(ctx, kind, stationID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

func (m *mockReservationStore) CreateLocked(ctx context.Context, r *model.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReservationStore) Get(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *mockReservationStore) UpdateStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockReservationStore) ByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reservation), args.Error(1)
}

type mockPolicyStore struct {
	mock.Mock
}

func (m *mockPolicyStore) PolicyFor(ctx context.Context, kind model.ResourceKind) (model.Policy, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(model.Policy), args.Error(1)
}

func newTestService(t *testing.T, now time.Time) (*Service, *mockScheduleStore, *mockReservationStore, *mockPolicyStore) {
	t.Helper()
	schedules := new(mockScheduleStore)
	reservations := new(mockReservationStore)
	policies := new(mockPolicyStore)
	logger := zerolog.New(io.Discard)
	svc := NewService(schedules, reservations, policies, 60, 30, &logger)
	svc.now = func() time.Time { return now }
	return svc, schedules, reservations, policies
}

func mondayRows() []schedule.Row {
	return []schedule.Row{
		{Weekday: time.Monday, Open: "09:00", Close: "17:00", Timezone: "America/Halifax"},
	}
}

func TestService_Book(t *testing.T) {
	loc, err := time.LoadLocation("America/Halifax")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
	end := start.Add(time.Hour)
	ctx := context.Background()

	t.Run("station booking commits as confirmed", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil).Once()
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, mondayRows(), nil).Once()
		reservations.On("Blocking", ctx, model.KindStation, "st-1", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil).Once()
		reservations.On("CreateLocked", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
			return r.Status == model.StatusConfirmed && r.ID != "" && r.Start.Equal(start)
		})).Return(nil).Once()

		r, err := svc.Book(ctx, BookRequest{
			Kind: model.KindStation, StationID: "st-1", BookedBy: "user-1",
			Start: start, End: end,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, r.Status)
		reservations.AssertExpectations(t)
	})

	t.Run("lounge booking commits as pending", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindLounge).Return(model.DefaultPolicy(model.KindLounge), nil).Once()
		schedules.On("Rows", ctx, model.KindLounge, "").Return(nil, mondayRows(), nil).Once()
		reservations.On("Blocking", ctx, model.KindLounge, "", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil).Once()
		reservations.On("CreateLocked", ctx, mock.MatchedBy(func(r *model.Reservation) bool {
			return r.Status == model.StatusPending && r.Name == "Game night"
		})).Return(nil).Once()

		r, err := svc.Book(ctx, BookRequest{
			Kind: model.KindLounge, BookedBy: "user-1", Name: "Game night",
			Start: start, End: end,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, r.Status)
		reservations.AssertExpectations(t)
	})

	t.Run("validator rejection surfaces as slot unavailable", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil).Once()
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, mondayRows(), nil).Once()
		taken := []model.Reservation{{Start: start, End: end, Status: model.StatusConfirmed}}
		reservations.On("Blocking", ctx, model.KindStation, "st-1", mock.Anything, mock.Anything).Return(taken, nil).Once()

		_, err := svc.Book(ctx, BookRequest{
			Kind: model.KindStation, StationID: "st-1", BookedBy: "user-1",
			Start: start, End: end,
		})
		assert.ErrorIs(t, err, model.ErrSlotUnavailable)
		reservations.AssertNotCalled(t, "CreateLocked", mock.Anything, mock.Anything)
	})

	t.Run("commit race loss surfaces as slot unavailable", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil).Once()
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, mondayRows(), nil).Once()
		reservations.On("Blocking", ctx, model.KindStation, "st-1", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil).Once()
		reservations.On("CreateLocked", ctx, mock.Anything).Return(model.ErrSlotUnavailable).Once()

		_, err := svc.Book(ctx, BookRequest{
			Kind: model.KindStation, StationID: "st-1", BookedBy: "user-1",
			Start: start, End: end,
		})
		assert.ErrorIs(t, err, model.ErrSlotUnavailable)
	})

	t.Run("store read failure surfaces as data unavailable", func(t *testing.T) {
		svc, schedules, _, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil).Once()
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, nil, errors.New("db down")).Once()

		_, err := svc.Book(ctx, BookRequest{
			Kind: model.KindStation, StationID: "st-1", BookedBy: "user-1",
			Start: start, End: end,
		})
		assert.ErrorIs(t, err, model.ErrDataUnavailable)
		assert.NotErrorIs(t, err, model.ErrSlotUnavailable)
	})

	t.Run("misconfigured policy is fatal not slot unavailable", func(t *testing.T) {
		svc, _, _, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.Policy{MinMinutes: 90, MaxMinutes: 60, MaxDaysAdvance: 30}, nil).Once()

		_, err := svc.Book(ctx, BookRequest{
			Kind: model.KindStation, StationID: "st-1", BookedBy: "user-1",
			Start: start, End: end,
		})
		assert.ErrorIs(t, err, model.ErrInvalidPolicy)
	})

	t.Run("request shape errors", func(t *testing.T) {
		svc, _, _, _ := newTestService(t, now)

		_, err := svc.Book(ctx, BookRequest{Kind: model.KindStation, StationID: "st-1", Start: start, End: end})
		assert.ErrorIs(t, err, model.ErrNotPermitted) // missing user

		_, err = svc.Book(ctx, BookRequest{Kind: model.KindStation, BookedBy: "u", Start: start, End: end})
		assert.ErrorIs(t, err, model.ErrNotPermitted) // station without id

		_, err = svc.Book(ctx, BookRequest{Kind: model.KindLounge, StationID: "st-1", BookedBy: "u", Start: start, End: end})
		assert.ErrorIs(t, err, model.ErrNotPermitted) // lounge with station id

		_, err = svc.Book(ctx, BookRequest{Kind: "arcade", BookedBy: "u", Start: start, End: end})
		assert.ErrorIs(t, err, model.ErrNotPermitted)
	})

	t.Run("rate limit kicks in", func(t *testing.T) {
		schedules := new(mockScheduleStore)
		reservations := new(mockReservationStore)
		policies := new(mockPolicyStore)
		logger := zerolog.New(io.Discard)
		svc := NewService(schedules, reservations, policies, 1, 1, &logger)
		svc.now = func() time.Time { return now }

		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil)
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, mondayRows(), nil)
		reservations.On("Blocking", ctx, model.KindStation, "st-1", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil)
		reservations.On("CreateLocked", ctx, mock.Anything).Return(nil)

		req := BookRequest{Kind: model.KindStation, StationID: "st-1", BookedBy: "user-1", Start: start, End: end}
		_, err := svc.Book(ctx, req)
		require.NoError(t, err)
		_, err = svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrRateLimited)
	})
}

func TestService_Transitions(t *testing.T) {
	loc, err := time.LoadLocation("America/Halifax")
	require.NoError(t, err)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
	end := start.Add(time.Hour)
	ctx := context.Background()

	res := func(status string) *model.Reservation {
		return &model.Reservation{ID: "r-1", Status: status, Start: start, End: end}
	}

	t.Run("cancel upcoming confirmed", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start.Add(-time.Hour))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusConfirmed), nil).Once()
		reservations.On("UpdateStatus", ctx, "r-1", model.StatusConfirmed, model.StatusCancelled).Return(nil).Once()

		require.NoError(t, svc.Cancel(ctx, "r-1"))
		reservations.AssertExpectations(t)
	})

	t.Run("cancel in progress ends the booking", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start.Add(30*time.Minute))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusApproved), nil).Once()
		reservations.On("UpdateStatus", ctx, "r-1", model.StatusApproved, model.StatusCancelled).Return(nil).Once()

		require.NoError(t, svc.Cancel(ctx, "r-1"))
	})

	t.Run("cancel after end is refused", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, end)
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusConfirmed), nil).Once()

		err := svc.Cancel(ctx, "r-1")
		assert.ErrorIs(t, err, model.ErrNotPermitted)
		reservations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("approve pending", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start.Add(-time.Hour))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusPending), nil).Once()
		reservations.On("UpdateStatus", ctx, "r-1", model.StatusPending, model.StatusApproved).Return(nil).Once()

		require.NoError(t, svc.Approve(ctx, "r-1"))
	})

	t.Run("deny pending", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start.Add(-time.Hour))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusPending), nil).Once()
		reservations.On("UpdateStatus", ctx, "r-1", model.StatusPending, model.StatusDenied).Return(nil).Once()

		require.NoError(t, svc.Deny(ctx, "r-1"))
	})

	t.Run("approve non-pending refused", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start.Add(-time.Hour))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusConfirmed), nil).Once()

		assert.ErrorIs(t, svc.Approve(ctx, "r-1"), model.ErrNotPermitted)
	})

	t.Run("no-show before start refused", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start.Add(-time.Minute))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusConfirmed), nil).Once()

		assert.ErrorIs(t, svc.MarkNoShow(ctx, "r-1"), model.ErrNotPermitted)
	})

	t.Run("no-show after start allowed", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, end.Add(time.Hour))
		reservations.On("Get", ctx, "r-1").Return(res(model.StatusConfirmed), nil).Once()
		reservations.On("UpdateStatus", ctx, "r-1", model.StatusConfirmed, model.StatusNoShow).Return(nil).Once()

		require.NoError(t, svc.MarkNoShow(ctx, "r-1"))
	})

	t.Run("missing reservation", func(t *testing.T) {
		svc, _, reservations, _ := newTestService(t, start)
		reservations.On("Get", ctx, "gone").Return(nil, model.ErrNotFound).Once()

		assert.ErrorIs(t, svc.Cancel(ctx, "gone"), model.ErrNotFound)
	})
}

func TestService_UserBookings(t *testing.T) {
	loc, err := time.LoadLocation("America/Halifax")
	require.NoError(t, err)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, loc)
	ctx := context.Background()

	svc, _, reservations, _ := newTestService(t, now)
	rows := []model.Reservation{
		{ID: "past", Status: model.StatusConfirmed, Start: now.Add(-3 * time.Hour), End: now.Add(-2 * time.Hour)},
		{ID: "current", Status: model.StatusApproved, Start: now.Add(-30 * time.Minute), End: now.Add(30 * time.Minute)},
		{ID: "future", Status: model.StatusPending, Start: now.Add(24 * time.Hour), End: now.Add(25 * time.Hour)},
	}
	reservations.On("ByUser", ctx, "user-1").Return(rows, nil).Once()

	got, err := svc.UserBookings(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "past", got[0].DateStatus)
	assert.Equal(t, "Ended", got[0].Display.Label)
	assert.Equal(t, 60, got[0].DurationMinutes)

	assert.Equal(t, "upcoming", got[1].DateStatus)
	assert.Equal(t, "In-progress", got[1].Display.Label)
	assert.Contains(t, got[1].Actions, model.ActionEnd)

	assert.Equal(t, "upcoming", got[2].DateStatus)
	assert.Equal(t, "Pending approval", got[2].Display.Label)
	assert.Empty(t, got[2].Actions)
}

func TestService_AvailableDates(t *testing.T) {
	loc, err := time.LoadLocation("America/Halifax")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil).Once()
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, mondayRows(), nil).Once()
		reservations.On("Blocking", ctx, model.KindStation, "st-1", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil).Once()

		dates, err := svc.AvailableDates(ctx, model.KindStation, "st-1")
		require.NoError(t, err)
		require.Len(t, dates, 5)
		assert.Equal(t, time.Monday, dates[0].Weekday())
	})

	t.Run("reservation read failure", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindStation).Return(model.DefaultPolicy(model.KindStation), nil).Once()
		schedules.On("Rows", ctx, model.KindStation, "st-1").Return(nil, mondayRows(), nil).Once()
		reservations.On("Blocking", ctx, model.KindStation, "st-1", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()

		_, err := svc.AvailableDates(ctx, model.KindStation, "st-1")
		assert.ErrorIs(t, err, model.ErrDataUnavailable)
	})

	t.Run("empty schedule yields empty result not error", func(t *testing.T) {
		svc, schedules, reservations, policies := newTestService(t, now)
		policies.On("PolicyFor", ctx, model.KindLounge).Return(model.DefaultPolicy(model.KindLounge), nil).Once()
		schedules.On("Rows", ctx, model.KindLounge, "").Return(nil, nil, nil).Once()
		reservations.On("Blocking", ctx, model.KindLounge, "", mock.Anything, mock.Anything).Return([]model.Reservation{}, nil).Once()

		dates, err := svc.AvailableDates(ctx, model.KindLounge, "")
		require.NoError(t, err)
		assert.Empty(t, dates)
	})
}
