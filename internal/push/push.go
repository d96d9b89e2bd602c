// Package push notifies offline room members of new messages through
// an external push gateway. Delivery is best effort: gateway failures
// are logged and never propagate into the message pipeline.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Hana-Lee/translate-chat/internal/database"
	"github.com/Hana-Lee/translate-chat/internal/stats"
)

// imagePlaceholder replaces image payloads in notification bodies.
const imagePlaceholder = "< 사진 >"

type platformNotification struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Payload map[string]any `json:"payload,omitempty"`
}

type notificationBody struct {
	Title   string               `json:"title"`
	Message string               `json:"message"`
	Android platformNotification `json:"android"`
	IOS     platformNotification `json:"ios"`
}

type pushRequest struct {
	Tokens       []string         `json:"tokens"`
	Profile      string           `json:"profile"`
	Notification notificationBody `json:"notification"`
}

// Gateway submits a prepared notification to the push backend.
type Gateway interface {
	Send(ctx context.Context, tokens []string, title, message, roomId string) error
}

// HTTPGateway is an Ionic-style REST push gateway client
// authenticated with a bearer token.
type HTTPGateway struct {
	url       string
	authToken string
	profile   string
	client    *http.Client
}

func NewHTTPGateway(url, authToken string) *HTTPGateway {
	return &HTTPGateway{
		url:       url,
		authToken: authToken,
		profile:   "dev",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *HTTPGateway) Send(ctx context.Context, tokens []string, title, message, roomId string) error {
	payload := map[string]any{"chat_room_id": roomId}
	body, err := json.Marshal(pushRequest{
		Tokens:  tokens,
		Profile: g.profile,
		Notification: notificationBody{
			Title:   title,
			Message: message,
			Android: platformNotification{Title: title, Message: message, Payload: payload},
			IOS:     platformNotification{Title: title, Message: message, Payload: payload},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.authToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}

// Dispatcher decides, per recipient, whether a push must go out. It
// re-reads the recipient's presence flag and device token from the
// store at decision time so a presence change between persist and
// dispatch is honored.
type Dispatcher struct {
	repo    database.ChatRepository
	gateway Gateway
	title   string
	timeout time.Duration
	log     *log.Logger
	stats   stats.StatsProvider
}

func NewDispatcher(repo database.ChatRepository, gateway Gateway, title string, logger *log.Logger, sp stats.StatsProvider) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		gateway: gateway,
		title:   title,
		timeout: 30 * time.Second,
		log:     logger,
		stats:   sp,
	}
}

// Dispatch notifies one recipient of a message if they are offline and
// have a device token. All failures are logged and swallowed.
func (d *Dispatcher) Dispatch(recipientId, senderName, text, msgType, roomId string) {
	recipient, err := d.repo.GetUser(recipientId)
	if err != nil {
		d.log.Printf("push: lookup recipient %q: %v", recipientId, err)
		return
	}

	if recipient.Online || recipient.DeviceToken == "" {
		return
	}

	body := text
	if msgType == "image" {
		body = imagePlaceholder
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	message := senderName + ":" + body
	if err := d.gateway.Send(ctx, []string{recipient.DeviceToken}, d.title, message, roomId); err != nil {
		d.log.Printf("push: send to %q: %v", recipientId, err)
		return
	}

	d.stats.Incr(stats.PushesSent)
}
