package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/wastewise/backend/internal/domain"
)

// multicastLimit is the FCM cap on tokens per SendEachForMulticast call.
// Larger batches are chunked and their outcomes merged.
const multicastLimit = 500

// Client delivers push notifications through Firebase Cloud Messaging.
// It implements domain.Pusher.
type Client struct {
	msgClient *messaging.Client
	logger    *zap.Logger
}

func NewClient(ctx context.Context, logger *zap.Logger, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		logger.Warn("No Firebase credentials file provided. FCM will utilize environment variable GOOGLE_APPLICATION_CREDENTIALS or default credentials.")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &Client{
		msgClient: msgClient,
		logger:    logger,
	}, nil
}

// SendMulticast delivers one payload to many tokens and reports the
// per-token result. An empty token list is a zero-attempt no-op; a provider
// failure degrades into an outcome with every token marked failed. The
// firebase SDK guarantees BatchResponse.Responses is in input-token order,
// which the positional zip below depends on.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) *domain.DispatchOutcome {
	outcome := &domain.DispatchOutcome{Attempted: tokens}
	if len(tokens) == 0 {
		return outcome
	}

	for start := 0; start < len(tokens); start += multicastLimit {
		end := start + multicastLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		message := &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}

		resp, err := c.msgClient.SendEachForMulticast(ctx, message)
		if err != nil {
			c.logger.Error("FCM multicast call failed, marking batch tokens failed",
				zap.Int("tokens", len(chunk)),
				zap.Error(err),
			)
			outcome.Degraded = true
			outcome.FailureCount += len(chunk)
			outcome.FailedTokens = append(outcome.FailedTokens, chunk...)
			continue
		}

		outcome.SuccessCount += resp.SuccessCount
		outcome.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			if !r.Success {
				outcome.FailedTokens = append(outcome.FailedTokens, chunk[i])
			}
		}
	}

	if outcome.FailureCount > 0 {
		c.logger.Warn("FCM multicast completed with failures",
			zap.Int("success", outcome.SuccessCount),
			zap.Int("failure", outcome.FailureCount),
		)
	}
	return outcome
}

// SendSingle sends one message to one token. Used for the registration
// liveness check.
func (c *Client) SendSingle(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	_, err := c.msgClient.Send(ctx, message)
	if err != nil {
		c.logger.Error("Failed to send FCM message", zap.String("token", token), zap.Error(err))
		return err
	}
	return nil
}
