package wslink_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/wslink"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func TestSessionConnectsAndRoundTrips(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]

	received := make(chan []byte, 1)
	session := wslink.New("test", func(ctx context.Context) (string, http.Header, error) {
		return wsURL, nil, nil
	}, nil, func(data []byte) {
		received <- data
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go session.Run(ctx)

	require.NoError(t, session.WaitReady(ctx))
	require.NoError(t, session.Send([]byte("hello")))

	select {
	case data := <-received:
		assert.Equal(t, "hello", string(data))
	case <-ctx.Done():
		t.Fatal("timed out waiting for echoed message")
	}
}
