package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRequestStore struct {
	requests map[uuid.UUID]*Request
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[uuid.UUID]*Request)}
}

func (f *fakeRequestStore) CreateRequest(ctx context.Context, params CreateRequestParams) (*Request, error) {
	req := &Request{
		ID:            uuid.New(),
		UserID:        params.UserID,
		Name:          params.Name,
		Type:          params.Type,
		Status:        StatusPending,
		Address:       params.Address,
		PhoneNumber:   params.PhoneNumber,
		ScheduledDate: params.ScheduledDate,
		Shift:         params.Shift,
		Weight:        params.Weight,
		Notes:         params.Notes,
		CreatedAt:     time.Now(),
	}
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeRequestStore) GetRequestByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return req, nil
}

func (f *fakeRequestStore) ListRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*Request, error) {
	var out []*Request
	for _, r := range f.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) ListRequestsByDriver(ctx context.Context, driverID uuid.UUID) ([]*Request, error) {
	var out []*Request
	for _, r := range f.requests {
		if r.DriverID != nil && *r.DriverID == driverID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) ListRequests(ctx context.Context, status *RequestStatus) ([]*Request, error) {
	var out []*Request
	for _, r := range f.requests {
		if status == nil || r.Status == *status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) AssignDriver(ctx context.Context, requestID, driverID uuid.UUID) (*Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	now := time.Now()
	req.DriverID = &driverID
	req.Status = StatusAssigned
	req.AssignedAt = &now
	return req, nil
}

func (f *fakeRequestStore) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status RequestStatus) (*Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	req.Status = status
	if status == StatusCompleted {
		now := time.Now()
		req.CompletedAt = &now
	}
	return req, nil
}

// requestTestEnv wires a RequestService against in-memory stores with a
// single user, driver and admin.
type requestTestEnv struct {
	svc      *RequestService
	requests *fakeRequestStore
	notifs   *fakeNotifStore
	pusher   *fakePusher
	userID   uuid.UUID
	driverID uuid.UUID
	adminID  uuid.UUID
}

func newRequestTestEnv() *requestTestEnv {
	userID := uuid.New()
	driverID := uuid.New()
	adminID := uuid.New()
	admin := &Account{ID: adminID, Category: CategoryAdmin, FCMTokens: []string{"adm:tok"}}
	accounts := &fakeAccounts{
		byID: map[uuid.UUID]*Account{
			userID:   {ID: userID, Category: CategoryUser, FCMTokens: []string{"usr:tok"}},
			driverID: {ID: driverID, Category: CategoryDriver, FCMTokens: []string{"drv:tok"}},
			adminID:  admin,
		},
		admins: []*Account{admin},
	}
	notifs := newFakeNotifStore()
	pusher := &fakePusher{}
	notifService := NewNotificationService(accounts, notifs, pusher, zap.NewNop())
	requests := newFakeRequestStore()

	return &requestTestEnv{
		svc:      NewRequestService(requests, notifService, zap.NewNop()),
		requests: requests,
		notifs:   notifs,
		pusher:   pusher,
		userID:   userID,
		driverID: driverID,
		adminID:  adminID,
	}
}

func (e *requestTestEnv) newRequest(t *testing.T) *Request {
	t.Helper()
	req, err := e.svc.Create(context.Background(), CreateRequestParams{
		UserID:        e.userID,
		Name:          "Weekly pickup",
		Type:          WasteRecyclable,
		Address:       "12 Green Street",
		PhoneNumber:   "+12025550123",
		ScheduledDate: time.Now().Add(24 * time.Hour),
		Shift:         "morning",
	})
	require.NoError(t, err)
	return req
}

func (e *requestTestEnv) notificationsOfKind(kind Kind) []*Notification {
	var out []*Notification
	for _, n := range e.notifs.records {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestCreateRequestNotifiesAdmins(t *testing.T) {
	env := newRequestTestEnv()

	req := env.newRequest(t)
	assert.Equal(t, StatusPending, req.Status)

	created := env.notificationsOfKind(KindNewRequest)
	require.Len(t, created, 1)
	assert.Equal(t, CategoryAdmin, created[0].RecipientCategory)
	assert.Equal(t, req.ID.String(), created[0].Payload["requestId"])
}

func TestCreateRequestValidation(t *testing.T) {
	env := newRequestTestEnv()

	_, err := env.svc.Create(context.Background(), CreateRequestParams{
		UserID:      env.userID,
		Name:        "Weekly pickup",
		Type:        WasteType("plasma"),
		Address:     "12 Green Street",
		PhoneNumber: "+12025550123",
		Shift:       "morning",
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, env.requests.requests)
}

func TestAssignDriver(t *testing.T) {
	env := newRequestTestEnv()
	req := env.newRequest(t)

	assigned, err := env.svc.AssignDriver(context.Background(), req.ID, env.driverID)
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.DriverID)
	assert.Equal(t, env.driverID, *assigned.DriverID)

	// Both the driver and the user hear about the assignment.
	created := env.notificationsOfKind(KindDriverAssigned)
	assert.Len(t, created, 2)

	// Only pending requests can be assigned.
	_, err = env.svc.AssignDriver(context.Background(), req.ID, env.driverID)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateStatusFiresMappedNotification(t *testing.T) {
	cases := []struct {
		status RequestStatus
		kind   Kind
		title  string
	}{
		{StatusOnTheWay, KindDriverOnTheWay, "Driver On The Way"},
		{StatusCompleted, KindRequestCompleted, "Collection Completed"},
		{StatusMissed, KindCollectionMissed, "Collection Missed"},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			env := newRequestTestEnv()
			req := env.newRequest(t)
			_, err := env.svc.AssignDriver(context.Background(), req.ID, env.driverID)
			require.NoError(t, err)

			updated, err := env.svc.UpdateStatus(context.Background(), req.ID, env.driverID, tc.status)
			require.NoError(t, err)
			assert.Equal(t, tc.status, updated.Status)

			created := env.notificationsOfKind(tc.kind)
			require.Len(t, created, 1)
			assert.Equal(t, tc.title, created[0].Title)
			require.NotNil(t, created[0].Recipient)
			assert.Equal(t, env.userID, *created[0].Recipient)
		})
	}
}

func TestUpdateStatusUnmappedFiresNothing(t *testing.T) {
	env := newRequestTestEnv()
	req := env.newRequest(t)
	_, err := env.svc.AssignDriver(context.Background(), req.ID, env.driverID)
	require.NoError(t, err)

	before := len(env.notifs.records)
	_, err = env.svc.UpdateStatus(context.Background(), req.ID, env.driverID, StatusAssigned)
	require.NoError(t, err)
	assert.Len(t, env.notifs.records, before)
}

func TestUpdateStatusRequiresAssignedDriver(t *testing.T) {
	env := newRequestTestEnv()
	req := env.newRequest(t)
	_, err := env.svc.AssignDriver(context.Background(), req.ID, env.driverID)
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(context.Background(), req.ID, uuid.New(), StatusOnTheWay)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCancelRequest(t *testing.T) {
	env := newRequestTestEnv()
	req := env.newRequest(t)

	t.Run("only the owner may cancel", func(t *testing.T) {
		_, err := env.svc.Cancel(context.Background(), req.ID, uuid.New())
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("cancel fires the cancellation notification", func(t *testing.T) {
		cancelled, err := env.svc.Cancel(context.Background(), req.ID, env.userID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		assert.Len(t, env.notificationsOfKind(KindRequestCancelled), 1)
	})

	t.Run("double cancel is rejected", func(t *testing.T) {
		_, err := env.svc.Cancel(context.Background(), req.ID, env.userID)
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestGetScoping(t *testing.T) {
	env := newRequestTestEnv()
	req := env.newRequest(t)

	t.Run("admin sees any request", func(t *testing.T) {
		_, err := env.svc.Get(context.Background(), req.ID, env.adminID, CategoryAdmin)
		require.NoError(t, err)
	})

	t.Run("unrelated user is rejected", func(t *testing.T) {
		_, err := env.svc.Get(context.Background(), req.ID, uuid.New(), CategoryUser)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unassigned driver is rejected", func(t *testing.T) {
		_, err := env.svc.Get(context.Background(), req.ID, env.driverID, CategoryDriver)
		require.ErrorIs(t, err, ErrForbidden)
	})
}
