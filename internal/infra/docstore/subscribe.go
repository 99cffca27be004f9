package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/boddenberg/budget-sync-go/internal/domain"
	"github.com/boddenberg/budget-sync-go/internal/port"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// watchEvent is one message on the document watch channel. The store
// always sends the current state first, then one event per remote write.
type watchEvent struct {
	Exists   bool                   `json:"exists"`
	Document *domain.BudgetDocument `json:"document"`
}

func (c *Client) watchURL(userID string) string {
	base := c.baseURL
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/v1/documents/budgets/%s/watch", base, url.PathEscape(userID))
}

// Subscribe opens a WebSocket watch on the user's document and invokes
// fn for every snapshot, starting with the current state. Delivery runs
// on a single goroutine in event order. The returned cancel function
// stops delivery; a failed channel reports once through onErr and is
// not reopened.
func (c *Client) Subscribe(ctx context.Context, userID string, fn port.SnapshotFunc, onErr func(error)) (func(), error) {
	conn, _, err := websocket.Dial(ctx, c.watchURL(userID), &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: authHeader(c.apiKey),
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "docstore/subscribe", Err: err}
	}
	conn.SetReadLimit(8 << 20)

	readCtx, cancelRead := context.WithCancel(context.Background())

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelRead()
			conn.Close(websocket.StatusNormalClosure, "unsubscribed")
		})
	}

	go func() {
		for {
			_, data, err := conn.Read(readCtx)
			if err != nil {
				if readCtx.Err() != nil {
					return
				}
				c.logger.Warn("docstore: watch channel closed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				cancel()
				onErr(&domain.ErrSubscription{Err: err})
				return
			}

			var ev watchEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				c.logger.Warn("docstore: invalid watch event",
					zap.String("user_id", userID),
					zap.Error(err),
				)
				continue
			}

			snap := port.Snapshot{}
			if ev.Exists && ev.Document != nil {
				ev.Document.Normalize()
				snap.Document = ev.Document
			}
			fn(snap)
		}
	}()

	return cancel, nil
}

func authHeader(apiKey string) map[string][]string {
	if apiKey == "" {
		return nil
	}
	return map[string][]string{
		"Authorization": {fmt.Sprintf("Bearer %s", apiKey)},
	}
}
