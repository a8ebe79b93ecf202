package evaluator

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSpectatorFeedBroadcastsEvents(t *testing.T) {
	feed, err := newSpectatorFeed("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer feed.close()

	wsURL := "ws://" + feed.listener.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to register the client before the
	// first broadcast, since Upgrade and the clients map write race with it.
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == 1
	}, time.Second, 5*time.Millisecond)

	feed.broadcast(spectatorEvent{Kind: "match_start", Match: "[a b]"})

	var event spectatorEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "match_start", event.Kind)
	require.Equal(t, "[a b]", event.Match)
	require.False(t, event.Timestamp.IsZero())
}

func TestSpectatorFeedRejectsOccupiedAddress(t *testing.T) {
	first, err := newSpectatorFeed("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer first.close()

	_, err = newSpectatorFeed(first.listener.Addr().String(), zerolog.Nop())
	require.Error(t, err)
}

func TestSpectatorFeedHealthyWithoutClients(t *testing.T) {
	feed, err := newSpectatorFeed("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	defer feed.close()

	// Broadcasting with nobody connected must not panic or block.
	feed.broadcast(spectatorEvent{Kind: "tournament_finish"})

	resp, err := http.Get("http://" + feed.listener.Addr().String() + "/not-found")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.True(t, strings.Contains(resp.Status, "404"))
}
