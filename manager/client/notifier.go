package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/groupgraph/api/config"
	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
)

// NewNotifier posts notifications to the configured webhook. Without an
// endpoint notifications are only logged.
func NewNotifier(cfg config.NotifyConfig) domain.Notifier {
	if cfg.Endpoint == "" {
		return &LogNotifier{}
	}
	return &WebhookNotifier{
		Client:   &http.Client{Timeout: cfg.Timeout()},
		endpoint: cfg.Endpoint,
		token:    cfg.Token.Value(),
	}
}

type WebhookNotifier struct {
	*http.Client

	endpoint string
	token    string
}

type NotificationPayload struct {
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject"`
	Template   string         `json:"template"`
	Context    map[string]any `json:"context,omitempty"`
}

func (n *WebhookNotifier) Send(ctx context.Context, notification domain.Notification) error {
	logger.Logger(ctx).Debug().Msgf("Sending notification %s to %d recipients", notification.Template, len(notification.Recipients))

	jsonBody, err := json.Marshal(NotificationPayload{
		Recipients: notification.Recipients,
		Subject:    notification.Subject,
		Template:   notification.Template,
		Context:    notification.Context,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification webhook %s returned non-OK status: %s", n.endpoint, resp.Status)
	}
	return nil
}

type LogNotifier struct{}

func (n *LogNotifier) Send(ctx context.Context, notification domain.Notification) error {
	logger.Logger(ctx).Info().
		Strs("recipients", notification.Recipients).
		Str("template", notification.Template).
		Msg(notification.Subject)
	return nil
}
