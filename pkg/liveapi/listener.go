package liveapi

import (
	"context"
	"net/url"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
	// Summaries may be minutes apart; pings keep the deadline moving.
	readTimeout  = 90 * time.Second
	pingInterval = 30 * time.Second
)

// StartListener connects to the live feed at host and calls handleMessage for
// every message, reconnecting with exponential backoff. It returns when ctx
// is done or after maxRetries consecutive failed connections.
func StartListener(ctx context.Context, host string, handleMessage func(msg *types.LiveMessage)) {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	retryCount := 0

	for {
		if retryCount > 0 {
			// Calculate retry delay with exponential backoff
			retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}
			log.Infof("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return
			}
		}

		log.Infof("Connecting to %s", u.String())
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("Connection failed: %v", err)
			retryCount++
			if retryCount >= maxRetries {
				log.Errorf("Max retries (%d) reached. Giving up.", maxRetries)
				return
			}
			continue
		}

		log.Infoln("Connected! Receiving live messages.")
		retryCount = 0

		connectionBroken := handleConnection(ctx, c, handleMessage)
		c.Close()
		if !connectionBroken {
			return
		}
		log.Warnln("Connection lost, will retry...")
		retryCount = 1
	}
}

// handleConnection reports whether the connection broke, as opposed to ctx
// being done.
func handleConnection(ctx context.Context, c *websocket.Conn, handleMessage func(msg *types.LiveMessage)) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("WebSocket error: %v", err)
				} else {
					log.Debugf("Connection closed: %v", err)
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			if msg := types.LiveMessageFromJsonBytes(message); msg != nil {
				handleMessage(msg)
			} else {
				log.Warnf("Failed to parse live message: %s", string(message))
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				log.Debugf("Failed to send ping: %v", err)
			}
		case <-ctx.Done():
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Debugf("Error sending close message: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
