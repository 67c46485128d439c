package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPushTimeout bounds the provider call so a slow push can never
// block the business event that triggered it.
const DefaultPushTimeout = 10 * time.Second

// NotificationService owns the notification fan-out: it resolves recipients,
// persists one record per recipient, collects device tokens, performs the
// multicast push, and prunes tokens the provider rejected. Push and prune are
// best effort; only resolution and persistence failures surface to callers.
type NotificationService struct {
	accounts    AccountRepository
	repo        NotificationRepository
	pusher      Pusher            // nil when FCM is disabled
	realtime    RealtimePublisher // optional
	cache       UnreadCache       // optional
	logger      *zap.Logger
	pushTimeout time.Duration
}

func NewNotificationService(accounts AccountRepository, repo NotificationRepository, pusher Pusher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		accounts:    accounts,
		repo:        repo,
		pusher:      pusher,
		logger:      logger,
		pushTimeout: DefaultPushTimeout,
	}
}

// WithRealtime attaches a websocket publisher for in-app delivery.
func (s *NotificationService) WithRealtime(rt RealtimePublisher) *NotificationService {
	s.realtime = rt
	return s
}

// WithUnreadCache attaches the badge-count cache.
func (s *NotificationService) WithUnreadCache(c UnreadCache) *NotificationService {
	s.cache = c
	return s
}

// WithPushTimeout overrides the bound on provider calls.
func (s *NotificationService) WithPushTimeout(d time.Duration) *NotificationService {
	if d > 0 {
		s.pushTimeout = d
	}
	return s
}

// DispatchInput describes one logical notification before fan-out.
type DispatchInput struct {
	Category  Category
	Recipient *uuid.UUID
	Title     string
	Message   string
	Kind      Kind
	Payload   Map
}

// Dispatch fans a notification out to its resolved recipients: persist one
// record per account, then push to their registered devices. The returned
// records reflect what was persisted; push success is never part of the
// contract.
func (s *NotificationService) Dispatch(ctx context.Context, in DispatchInput) ([]*Notification, error) {
	if !in.Category.Valid() || in.Title == "" || in.Message == "" {
		return nil, fmt.Errorf("%w: recipient category, title and message are required", ErrInvalidRequest)
	}
	if in.Kind == "" {
		in.Kind = KindGeneral
	}

	recipients, err := s.resolveRecipients(ctx, in.Category, in.Recipient)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]*Notification, 0, len(recipients))
	for _, acct := range recipients {
		id := acct.ID
		records = append(records, &Notification{
			ID:                uuid.New(),
			Recipient:         &id,
			RecipientCategory: in.Category,
			Title:             in.Title,
			Message:           in.Message,
			Kind:              in.Kind,
			Status:            ResponsePending,
			Payload:           in.Payload,
			CreatedAt:         now,
			ExpiresAt:         now.Add(DefaultTTL),
		})
	}

	created, err := s.repo.CreateMany(ctx, records)
	if err != nil {
		if len(created) == 0 {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		// Partial persistence still proceeds to push for the saved subset.
		s.logger.Warn("partial notification persistence",
			zap.Int("requested", len(records)),
			zap.Int("created", len(created)),
			zap.Error(err),
		)
	}

	saved := make(map[uuid.UUID]bool, len(created))
	for _, n := range created {
		if n.Recipient != nil {
			saved[*n.Recipient] = true
		}
		s.publish(n)
	}
	s.invalidateUnread(ctx, in.Category, in.Recipient)

	targets := recipients[:0:0]
	for _, acct := range recipients {
		if saved[acct.ID] {
			targets = append(targets, acct)
		}
	}
	s.push(ctx, targets, created, in)

	return created, nil
}

// Broadcast persists a single recipient-less record visible to every account
// of the category. Broadcasts are delivered in-app only; there is no token
// fan-out for them.
func (s *NotificationService) Broadcast(ctx context.Context, category Category, title, message string, kind Kind, payload Map) (*Notification, error) {
	if !category.Valid() || title == "" || message == "" {
		return nil, fmt.Errorf("%w: recipient category, title and message are required", ErrInvalidRequest)
	}
	now := time.Now()
	n := &Notification{
		ID:                uuid.New(),
		RecipientCategory: category,
		Title:             title,
		Message:           message,
		Kind:              kind,
		Status:            ResponsePending,
		Payload:           payload,
		CreatedAt:         now,
		ExpiresAt:         now.Add(DefaultTTL),
	}
	created, err := s.repo.CreateMany(ctx, []*Notification{n})
	if err != nil || len(created) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.publish(created[0])
	s.invalidateUnread(ctx, category, nil)
	return created[0], nil
}

// resolveRecipients maps a category (and optional id) to concrete accounts.
// Admin targets the whole role; user and driver name exactly one account.
func (s *NotificationService) resolveRecipients(ctx context.Context, category Category, recipientID *uuid.UUID) ([]*Account, error) {
	switch category {
	case CategoryAdmin:
		admins, err := s.accounts.ListAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if len(admins) == 0 {
			return nil, ErrNoRecipients
		}
		return admins, nil
	case CategoryUser, CategoryDriver:
		if recipientID == nil {
			return nil, fmt.Errorf("%w: recipient id is required for %s notifications", ErrInvalidRequest, category)
		}
		acct, err := s.accounts.GetAccountByID(ctx, category, *recipientID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil, fmt.Errorf("%w: %s %s", ErrNotFound, category, recipientID)
			}
			return nil, err
		}
		return []*Account{acct}, nil
	default:
		return nil, fmt.Errorf("%w: unknown recipient category %q", ErrInvalidRequest, category)
	}
}

// push performs the multicast and reconciles failed tokens. Never fails the
// dispatch: every error path here is logged and swallowed.
func (s *NotificationService) push(ctx context.Context, targets []*Account, created []*Notification, in DispatchInput) {
	if s.pusher == nil || len(targets) == 0 || len(created) == 0 {
		return
	}
	tokens := ValidTokens(targets)
	if len(tokens) == 0 {
		s.logger.Debug("no valid device tokens for notification recipients",
			zap.String("category", string(in.Category)))
		return
	}

	data := pushData(created[0], in.Payload)
	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()

	outcome := s.pusher.SendMulticast(pushCtx, tokens, in.Title, in.Message, data)
	if outcome.Degraded {
		s.logger.Error("push delivery degraded, all tokens marked failed",
			zap.Int("tokens", len(tokens)))
	}
	if len(outcome.FailedTokens) > 0 {
		s.pruneTokens(ctx, outcome.FailedTokens, in.Category, in.Recipient)
	}
}

// pruneTokens removes provider-rejected tokens from their owning accounts.
// For admin dispatches the failing token's owner is not tracked, so the prune
// runs across every admin account. Best effort by design.
func (s *NotificationService) pruneTokens(ctx context.Context, failed []string, category Category, recipientID *uuid.UUID) {
	var err error
	switch category {
	case CategoryAdmin:
		err = s.accounts.RemoveFCMTokens(ctx, CategoryAdmin, nil, failed)
	case CategoryUser, CategoryDriver:
		err = s.accounts.RemoveFCMTokens(ctx, category, recipientID, failed)
	default:
		return
	}
	if err != nil {
		s.logger.Error("failed to prune rejected device tokens",
			zap.Int("count", len(failed)),
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("pruned rejected device tokens",
		zap.Int("count", len(failed)),
		zap.String("category", string(category)),
	)
}

// ValidTokens concatenates the accounts' device tokens, drops entries that
// cannot be real FCM registrations (empty, or missing the ':' separator every
// registration token carries), and deduplicates preserving first occurrence.
func ValidTokens(accounts []*Account) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, acct := range accounts {
		for _, t := range acct.FCMTokens {
			if t == "" || !strings.Contains(t, ":") {
				continue
			}
			if seen[t] {
				continue
			}
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// RegisterDevice validates a device token with a synchronous test push and,
// only on success, adds it to the account's token set. The account is left
// untouched when the liveness check fails.
func (s *NotificationService) RegisterDevice(ctx context.Context, category Category, accountID uuid.UUID, token string) ([]string, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: device token is required", ErrInvalidToken)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown account category %q", ErrInvalidRequest, category)
	}
	if _, err := s.accounts.GetAccountByID(ctx, category, accountID); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, category, accountID)
		}
		return nil, err
	}

	if s.pusher != nil {
		pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
		defer cancel()
		err := s.pusher.SendSingle(pushCtx, token, "Device Registration", "Testing device registration", nil)
		if err != nil {
			s.logger.Warn("device token failed liveness check", zap.Error(err))
			return nil, fmt.Errorf("%w: provider rejected token", ErrInvalidToken)
		}
	}

	tokens, err := s.accounts.AddFCMToken(ctx, category, accountID, token)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// SendTest pushes a fixed test notification to the caller's own devices and
// prunes any tokens the provider rejects.
func (s *NotificationService) SendTest(ctx context.Context, category Category, accountID uuid.UUID) (*DispatchOutcome, error) {
	acct, err := s.accounts.GetAccountByID(ctx, category, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, category, accountID)
		}
		return nil, err
	}
	tokens := ValidTokens([]*Account{acct})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no device tokens registered", ErrInvalidRequest)
	}
	if s.pusher == nil {
		return nil, fmt.Errorf("%w: push delivery is disabled", ErrInvalidRequest)
	}

	data := map[string]string{
		"type":      string(KindTest),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	pushCtx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()
	outcome := s.pusher.SendMulticast(pushCtx, tokens, "WasteWise Test Notification", "This is a test notification from WasteWise", data)
	if len(outcome.FailedTokens) > 0 {
		id := accountID
		s.pruneTokens(ctx, outcome.FailedTokens, category, &id)
	}
	return outcome, nil
}

// List returns the caller's notifications newest first. Admins share one
// role-wide feed; users and drivers see their own records plus category
// broadcasts.
func (s *NotificationService) List(ctx context.Context, category Category, accountID uuid.UUID, opts ListOptions) ([]*Notification, error) {
	if opts.Limit <= 0 || opts.Limit > 50 {
		opts.Limit = 50
	}
	switch category {
	case CategoryAdmin:
		return s.repo.FindByCategory(ctx, CategoryAdmin, opts.Limit)
	case CategoryUser, CategoryDriver:
		return s.repo.FindForRecipient(ctx, accountID, category, opts)
	default:
		return nil, fmt.Errorf("%w: unknown account category %q", ErrInvalidRequest, category)
	}
}

// MarkRead flips one record to read, enforcing ownership for targeted
// records. Broadcasts are not ownership-checked.
func (s *NotificationService) MarkRead(ctx context.Context, id, requester uuid.UUID, category Category) error {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.Recipient != nil && *n.Recipient != requester {
		return fmt.Errorf("%w: notification belongs to another account", ErrForbidden)
	}
	if err := s.repo.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	s.invalidateUnread(ctx, category, &requester)
	return nil
}

// MarkAllRead is idempotent; a second call is a no-op.
func (s *NotificationService) MarkAllRead(ctx context.Context, requester uuid.UUID, category Category) error {
	if err := s.repo.MarkAllRead(ctx, requester, category); err != nil {
		return err
	}
	s.invalidateUnread(ctx, category, &requester)
	return nil
}

// Delete removes one record with the same ownership rule as MarkRead.
func (s *NotificationService) Delete(ctx context.Context, id, requester uuid.UUID, category Category) error {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if n.Recipient != nil && *n.Recipient != requester {
		return fmt.Errorf("%w: notification belongs to another account", ErrForbidden)
	}
	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return err
	}
	s.invalidateUnread(ctx, category, &requester)
	return nil
}

// Respond records an accept/decline answer on an actionable notification.
func (s *NotificationService) Respond(ctx context.Context, id uuid.UUID, action string) (*Notification, error) {
	var status string
	switch action {
	case "accept":
		status = ResponseAccepted
	case "decline":
		status = ResponseDeclined
	default:
		return nil, fmt.Errorf("%w: action must be 'accept' or 'decline'", ErrInvalidRequest)
	}
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateNotificationStatus(ctx, id, status); err != nil {
		return nil, err
	}
	n.Status = status
	return n, nil
}

// UnreadCount serves the badge count, from cache when warm.
func (s *NotificationService) UnreadCount(ctx context.Context, category Category, accountID uuid.UUID) (int, error) {
	if s.cache != nil {
		if count, ok := s.cache.GetUnread(ctx, category, accountID); ok {
			return count, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, accountID, category)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetUnread(ctx, category, accountID, count)
	}
	return count, nil
}

// DeleteExpired sweeps records past their TTL.
func (s *NotificationService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

func (s *NotificationService) publish(n *Notification) {
	if s.realtime != nil {
		s.realtime.Publish(n)
	}
}

func (s *NotificationService) invalidateUnread(ctx context.Context, category Category, accountID *uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateUnread(ctx, category, accountID)
	}
}

// pushData builds the FCM data payload: the notification kind and record id,
// the contextual payload flattened to strings, and a dispatch timestamp.
func pushData(first *Notification, payload Map) map[string]string {
	data := make(map[string]string, len(payload)+3)
	for k, v := range payload {
		data[k] = fmt.Sprintf("%v", v)
	}
	data["type"] = string(first.Kind)
	data["notificationId"] = first.ID.String()
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return data
}
