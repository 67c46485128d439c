package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAccounts struct {
	byID        map[uuid.UUID]*Account
	admins      []*Account
	addedTokens []string
	removed     []string
	removedFrom *uuid.UUID
	removedCat  Category
}

func (f *fakeAccounts) GetAccountByID(ctx context.Context, category Category, id uuid.UUID) (*Account, error) {
	acct, ok := f.byID[id]
	if !ok || acct.Category != category {
		return nil, ErrAccountNotFound
	}
	return acct, nil
}

func (f *fakeAccounts) ListAdmins(ctx context.Context) ([]*Account, error) {
	return f.admins, nil
}

func (f *fakeAccounts) AddFCMToken(ctx context.Context, category Category, accountID uuid.UUID, token string) ([]string, error) {
	acct, ok := f.byID[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	f.addedTokens = append(f.addedTokens, token)
	acct.FCMTokens = append(acct.FCMTokens, token)
	return acct.FCMTokens, nil
}

func (f *fakeAccounts) RemoveFCMTokens(ctx context.Context, category Category, accountID *uuid.UUID, tokens []string) error {
	f.removed = append(f.removed, tokens...)
	f.removedFrom = accountID
	f.removedCat = category
	if accountID != nil {
		if acct, ok := f.byID[*accountID]; ok {
			kept := acct.FCMTokens[:0]
			for _, t := range acct.FCMTokens {
				drop := false
				for _, r := range tokens {
					if t == r {
						drop = true
					}
				}
				if !drop {
					kept = append(kept, t)
				}
			}
			acct.FCMTokens = kept
		}
	}
	return nil
}

type fakeNotifStore struct {
	records      map[uuid.UUID]*Notification
	createErr    error
	failAfter    int // with createErr set, inserts succeed up to this count
	markAllCalls int
}

func newFakeNotifStore() *fakeNotifStore {
	return &fakeNotifStore{records: make(map[uuid.UUID]*Notification), failAfter: -1}
}

func (f *fakeNotifStore) CreateMany(ctx context.Context, notifs []*Notification) ([]*Notification, error) {
	var created []*Notification
	for i, n := range notifs {
		if f.createErr != nil && (f.failAfter < 0 || i >= f.failAfter) {
			return created, f.createErr
		}
		f.records[n.ID] = n
		created = append(created, n)
	}
	return created, nil
}

func (f *fakeNotifStore) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

func (f *fakeNotifStore) FindForRecipient(ctx context.Context, recipientID uuid.UUID, category Category, opts ListOptions) ([]*Notification, error) {
	var out []*Notification
	for _, n := range f.records {
		if n.RecipientCategory != category {
			continue
		}
		if n.Recipient != nil && *n.Recipient != recipientID {
			continue
		}
		if opts.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
		if len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotifStore) FindByCategory(ctx context.Context, category Category, limit int) ([]*Notification, error) {
	var out []*Notification
	for _, n := range f.records {
		if n.RecipientCategory == category {
			out = append(out, n)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotifStore) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	n, ok := f.records[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (f *fakeNotifStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID, category Category) error {
	f.markAllCalls++
	for _, n := range f.records {
		if n.RecipientCategory == category && (n.Recipient == nil || *n.Recipient == recipientID) {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotifStore) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	n, ok := f.records[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = status
	return nil
}

func (f *fakeNotifStore) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.records[id]; !ok {
		return ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeNotifStore) CountUnread(ctx context.Context, recipientID uuid.UUID, category Category) (int, error) {
	count := 0
	for _, n := range f.records {
		if n.RecipientCategory != category || n.IsRead {
			continue
		}
		if n.Recipient == nil || *n.Recipient == recipientID {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakePusher struct {
	multicastCalls [][]string
	singleCalls    []string
	failedTokens   []string
	singleErr      error
}

func (f *fakePusher) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) *DispatchOutcome {
	f.multicastCalls = append(f.multicastCalls, tokens)
	return &DispatchOutcome{
		Attempted:    tokens,
		FailedTokens: f.failedTokens,
		SuccessCount: len(tokens) - len(f.failedTokens),
		FailureCount: len(f.failedTokens),
	}
}

func (f *fakePusher) SendSingle(ctx context.Context, token, title, body string, data map[string]string) error {
	f.singleCalls = append(f.singleCalls, token)
	return f.singleErr
}

func newTestService(accounts *fakeAccounts, store *fakeNotifStore, pusher Pusher) *NotificationService {
	return NewNotificationService(accounts, store, pusher, zap.NewNop())
}

func TestValidTokens(t *testing.T) {
	a := &Account{FCMTokens: []string{"abc:123", "", "nodelimiter", "abc:123", "def:456"}}
	b := &Account{FCMTokens: []string{"def:456", "ghi:789"}}

	tokens := ValidTokens([]*Account{a, b})

	assert.Equal(t, []string{"abc:123", "def:456", "ghi:789"}, tokens)
}

func TestDispatchValidation(t *testing.T) {
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{}}
	store := newFakeNotifStore()
	pusher := &fakePusher{}
	svc := newTestService(accounts, store, pusher)

	t.Run("missing message", func(t *testing.T) {
		id := uuid.New()
		_, err := svc.Dispatch(context.Background(), DispatchInput{
			Category:  CategoryUser,
			Recipient: &id,
			Title:     "Pickup Scheduled",
		})
		require.ErrorIs(t, err, ErrInvalidRequest)
		assert.Empty(t, store.records)
		assert.Empty(t, pusher.multicastCalls)
	})

	t.Run("missing recipient for user", func(t *testing.T) {
		_, err := svc.Dispatch(context.Background(), DispatchInput{
			Category: CategoryUser,
			Title:    "Pickup Scheduled",
			Message:  "Your pickup is confirmed.",
		})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("unknown user fails before persistence", func(t *testing.T) {
		id := uuid.New()
		_, err := svc.Dispatch(context.Background(), DispatchInput{
			Category:  CategoryUser,
			Recipient: &id,
			Title:     "Pickup Scheduled",
			Message:   "Your pickup is confirmed.",
		})
		require.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, store.records)
		assert.Empty(t, pusher.multicastCalls)
	})
}

func TestDispatchToDriverPrunesFailedTokens(t *testing.T) {
	driverID := uuid.New()
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{
		driverID: {ID: driverID, Category: CategoryDriver, FCMTokens: []string{"abc:123"}},
	}}
	store := newFakeNotifStore()
	pusher := &fakePusher{failedTokens: []string{"abc:123"}}
	svc := newTestService(accounts, store, pusher)

	created, err := svc.Dispatch(context.Background(), DispatchInput{
		Category:  CategoryDriver,
		Recipient: &driverID,
		Title:     "New Assignment",
		Message:   "You have a new pickup.",
		Kind:      KindDriverAssigned,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	// The record survives push failure.
	_, err = store.GetNotification(context.Background(), created[0].ID)
	require.NoError(t, err)

	// The rejected token was removed from the driver's set.
	assert.Equal(t, []string{"abc:123"}, accounts.removed)
	require.NotNil(t, accounts.removedFrom)
	assert.Equal(t, driverID, *accounts.removedFrom)
	assert.Empty(t, accounts.byID[driverID].FCMTokens)
}

func TestDispatchToAdminsFansOut(t *testing.T) {
	a1 := &Account{ID: uuid.New(), Category: CategoryAdmin, FCMTokens: []string{"tok:1"}}
	a2 := &Account{ID: uuid.New(), Category: CategoryAdmin, FCMTokens: []string{"tok:2"}}
	a3 := &Account{ID: uuid.New(), Category: CategoryAdmin}
	accounts := &fakeAccounts{
		byID:   map[uuid.UUID]*Account{a1.ID: a1, a2.ID: a2, a3.ID: a3},
		admins: []*Account{a1, a2, a3},
	}
	store := newFakeNotifStore()
	pusher := &fakePusher{}
	svc := newTestService(accounts, store, pusher)

	created, err := svc.Dispatch(context.Background(), DispatchInput{
		Category: CategoryAdmin,
		Title:    "New Pickup Request",
		Message:  "A user filed a new request.",
		Kind:     KindNewRequest,
	})
	require.NoError(t, err)
	assert.Len(t, created, 3)
	assert.Len(t, store.records, 3)

	require.Len(t, pusher.multicastCalls, 1)
	assert.ElementsMatch(t, []string{"tok:1", "tok:2"}, pusher.multicastCalls[0])
}

func TestDispatchNoAdminsIsNoRecipients(t *testing.T) {
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{}}
	store := newFakeNotifStore()
	svc := newTestService(accounts, store, &fakePusher{})

	_, err := svc.Dispatch(context.Background(), DispatchInput{
		Category: CategoryAdmin,
		Title:    "New Pickup Request",
		Message:  "A user filed a new request.",
	})
	require.ErrorIs(t, err, ErrNoRecipients)
	assert.Empty(t, store.records)
}

func TestDispatchPartialPersistence(t *testing.T) {
	a1 := &Account{ID: uuid.New(), Category: CategoryAdmin, FCMTokens: []string{"tok:1"}}
	a2 := &Account{ID: uuid.New(), Category: CategoryAdmin, FCMTokens: []string{"tok:2"}}
	accounts := &fakeAccounts{
		byID:   map[uuid.UUID]*Account{a1.ID: a1, a2.ID: a2},
		admins: []*Account{a1, a2},
	}
	store := newFakeNotifStore()
	store.createErr = errors.New("disk full")
	store.failAfter = 1
	pusher := &fakePusher{}
	svc := newTestService(accounts, store, pusher)

	created, err := svc.Dispatch(context.Background(), DispatchInput{
		Category: CategoryAdmin,
		Title:    "New Pickup Request",
		Message:  "A user filed a new request.",
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Only the persisted recipient is pushed to.
	require.Len(t, pusher.multicastCalls, 1)
	assert.Equal(t, []string{"tok:1"}, pusher.multicastCalls[0])
}

func TestDispatchTotalPersistenceFailure(t *testing.T) {
	a1 := &Account{ID: uuid.New(), Category: CategoryAdmin}
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{a1.ID: a1}, admins: []*Account{a1}}
	store := newFakeNotifStore()
	store.createErr = errors.New("connection refused")
	store.failAfter = 0
	svc := newTestService(accounts, store, &fakePusher{})

	_, err := svc.Dispatch(context.Background(), DispatchInput{
		Category: CategoryAdmin,
		Title:    "New Pickup Request",
		Message:  "A user filed a new request.",
	})
	require.ErrorIs(t, err, ErrPersistence)
}

func TestBroadcast(t *testing.T) {
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{}}
	store := newFakeNotifStore()
	pusher := &fakePusher{}
	svc := newTestService(accounts, store, pusher)

	n, err := svc.Broadcast(context.Background(), CategoryUser, "Holiday Schedule", "No pickups on Friday.", KindAdminAnnouncement, nil)
	require.NoError(t, err)

	assert.Nil(t, n.Recipient)
	assert.Equal(t, CategoryUser, n.RecipientCategory)
	assert.Len(t, store.records, 1)
	// Broadcasts are in-app only.
	assert.Empty(t, pusher.multicastCalls)
}

func TestRegisterDevice(t *testing.T) {
	accountID := uuid.New()
	newAccounts := func() *fakeAccounts {
		return &fakeAccounts{byID: map[uuid.UUID]*Account{
			accountID: {ID: accountID, Category: CategoryUser, FCMTokens: []string{"old:tok"}},
		}}
	}

	t.Run("empty token", func(t *testing.T) {
		accounts := newAccounts()
		svc := newTestService(accounts, newFakeNotifStore(), &fakePusher{})

		_, err := svc.RegisterDevice(context.Background(), CategoryUser, accountID, "")
		require.ErrorIs(t, err, ErrInvalidToken)
		assert.Equal(t, []string{"old:tok"}, accounts.byID[accountID].FCMTokens)
	})

	t.Run("liveness check fails", func(t *testing.T) {
		accounts := newAccounts()
		pusher := &fakePusher{singleErr: errors.New("unregistered")}
		svc := newTestService(accounts, newFakeNotifStore(), pusher)

		_, err := svc.RegisterDevice(context.Background(), CategoryUser, accountID, "new:tok")
		require.ErrorIs(t, err, ErrInvalidToken)
		assert.Equal(t, []string{"old:tok"}, accounts.byID[accountID].FCMTokens)
	})

	t.Run("success", func(t *testing.T) {
		accounts := newAccounts()
		pusher := &fakePusher{}
		svc := newTestService(accounts, newFakeNotifStore(), pusher)

		tokens, err := svc.RegisterDevice(context.Background(), CategoryUser, accountID, "new:tok")
		require.NoError(t, err)
		assert.Contains(t, tokens, "new:tok")
		assert.Equal(t, []string{"new:tok"}, pusher.singleCalls)
	})

	t.Run("unknown account", func(t *testing.T) {
		svc := newTestService(newAccounts(), newFakeNotifStore(), &fakePusher{})

		_, err := svc.RegisterDevice(context.Background(), CategoryUser, uuid.New(), "new:tok")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSendTest(t *testing.T) {
	accountID := uuid.New()
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{
		accountID: {ID: accountID, Category: CategoryUser, FCMTokens: []string{"abc:123"}},
	}}
	pusher := &fakePusher{failedTokens: []string{"abc:123"}}
	svc := newTestService(accounts, newFakeNotifStore(), pusher)

	outcome, err := svc.SendTest(context.Background(), CategoryUser, accountID)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.FailureCount)

	// Failed test tokens are pruned like dispatch failures.
	assert.Equal(t, []string{"abc:123"}, accounts.removed)
}

func TestSendTestWithoutTokens(t *testing.T) {
	accountID := uuid.New()
	accounts := &fakeAccounts{byID: map[uuid.UUID]*Account{
		accountID: {ID: accountID, Category: CategoryUser},
	}}
	svc := newTestService(accounts, newFakeNotifStore(), &fakePusher{})

	_, err := svc.SendTest(context.Background(), CategoryUser, accountID)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestMarkReadOwnership(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	store := newFakeNotifStore()
	svc := newTestService(&fakeAccounts{}, store, nil)

	targeted := &Notification{ID: uuid.New(), Recipient: &owner, RecipientCategory: CategoryUser}
	broadcast := &Notification{ID: uuid.New(), RecipientCategory: CategoryUser}
	store.records[targeted.ID] = targeted
	store.records[broadcast.ID] = broadcast

	t.Run("owner may mark read", func(t *testing.T) {
		require.NoError(t, svc.MarkRead(context.Background(), targeted.ID, owner, CategoryUser))
		assert.True(t, targeted.IsRead)
	})

	t.Run("other account is forbidden", func(t *testing.T) {
		err := svc.MarkRead(context.Background(), targeted.ID, other, CategoryUser)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("broadcasts are not ownership checked", func(t *testing.T) {
		require.NoError(t, svc.MarkRead(context.Background(), broadcast.ID, other, CategoryUser))
	})

	t.Run("unknown id", func(t *testing.T) {
		err := svc.MarkRead(context.Background(), uuid.New(), owner, CategoryUser)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	requester := uuid.New()
	store := newFakeNotifStore()
	n := &Notification{ID: uuid.New(), Recipient: &requester, RecipientCategory: CategoryUser}
	store.records[n.ID] = n
	svc := newTestService(&fakeAccounts{}, store, nil)

	require.NoError(t, svc.MarkAllRead(context.Background(), requester, CategoryUser))
	assert.True(t, n.IsRead)

	require.NoError(t, svc.MarkAllRead(context.Background(), requester, CategoryUser))
	assert.True(t, n.IsRead)
	assert.Equal(t, 2, store.markAllCalls)
}

func TestDeleteOwnership(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	store := newFakeNotifStore()
	svc := newTestService(&fakeAccounts{}, store, nil)

	n := &Notification{ID: uuid.New(), Recipient: &owner, RecipientCategory: CategoryUser}
	store.records[n.ID] = n

	err := svc.Delete(context.Background(), n.ID, other, CategoryUser)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), n.ID, owner, CategoryUser))
	assert.Empty(t, store.records)
}

func TestRespond(t *testing.T) {
	store := newFakeNotifStore()
	svc := newTestService(&fakeAccounts{}, store, nil)

	n := &Notification{ID: uuid.New(), RecipientCategory: CategoryDriver, Status: ResponsePending}
	store.records[n.ID] = n

	t.Run("accept", func(t *testing.T) {
		got, err := svc.Respond(context.Background(), n.ID, "accept")
		require.NoError(t, err)
		assert.Equal(t, ResponseAccepted, got.Status)
	})

	t.Run("decline", func(t *testing.T) {
		got, err := svc.Respond(context.Background(), n.ID, "decline")
		require.NoError(t, err)
		assert.Equal(t, ResponseDeclined, got.Status)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := svc.Respond(context.Background(), n.ID, "maybe")
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestListClampsLimit(t *testing.T) {
	recipient := uuid.New()
	store := newFakeNotifStore()
	for i := 0; i < 60; i++ {
		id := uuid.New()
		r := recipient
		store.records[id] = &Notification{ID: id, Recipient: &r, RecipientCategory: CategoryUser}
	}
	svc := newTestService(&fakeAccounts{}, store, nil)

	notifs, err := svc.List(context.Background(), CategoryUser, recipient, ListOptions{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, notifs, 50)
}

type fakeCache struct {
	values      map[uuid.UUID]int
	invalidated int
}

func (f *fakeCache) GetUnread(ctx context.Context, category Category, accountID uuid.UUID) (int, bool) {
	v, ok := f.values[accountID]
	return v, ok
}

func (f *fakeCache) SetUnread(ctx context.Context, category Category, accountID uuid.UUID, count int) {
	f.values[accountID] = count
}

func (f *fakeCache) InvalidateUnread(ctx context.Context, category Category, accountID *uuid.UUID) {
	f.invalidated++
	if accountID != nil {
		delete(f.values, *accountID)
	}
}

func TestUnreadCountUsesCache(t *testing.T) {
	requester := uuid.New()
	store := newFakeNotifStore()
	r := requester
	n := &Notification{ID: uuid.New(), Recipient: &r, RecipientCategory: CategoryUser}
	store.records[n.ID] = n

	cache := &fakeCache{values: map[uuid.UUID]int{}}
	svc := newTestService(&fakeAccounts{}, store, nil).WithUnreadCache(cache)

	// Cold: falls through to the store and warms the cache.
	count, err := svc.UnreadCount(context.Background(), CategoryUser, requester)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, cache.values[requester])

	// Warm: served from cache even if the store changed underneath.
	store.records[n.ID].IsRead = true
	count, err = svc.UnreadCount(context.Background(), CategoryUser, requester)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// MarkAllRead invalidates, so the next read is fresh.
	require.NoError(t, svc.MarkAllRead(context.Background(), requester, CategoryUser))
	count, err = svc.UnreadCount(context.Background(), CategoryUser, requester)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
