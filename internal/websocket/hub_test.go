// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/models"
)

// fakeTrending serves a national topic plus one regional topic per region
// and counts calls per region.
type fakeTrending struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeTrending) list(region string) []*models.Topic {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[region]++
	f.mu.Unlock()

	topics := []*models.Topic{{ID: "nat-1", Title: "Transit budget", ParticipantCount: 4, Scope: models.GeoScope{Level: models.GeoNational}}}
	if region != "" {
		topics = append(topics, &models.Topic{ID: "reg-" + region, Title: "Local zoning", ParticipantCount: 3,
			Scope: models.GeoScope{Level: models.GeoRegional, Region: region}})
	}
	return topics
}

func (f *fakeTrending) count(region string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[region]
}

func startHub(t *testing.T, f *fakeTrending) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(f.list, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func testClient(hub *Hub, region string, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer), region: region}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func topicIDs(t *testing.T, msg Message) []string {
	t.Helper()
	if msg.Type != MessageTypeTrending {
		t.Fatalf("type = %q", msg.Type)
	}
	data, ok := msg.Data.(TrendingData)
	if !ok {
		t.Fatalf("data = %T", msg.Data)
	}
	ids := make([]string, len(data.Topics))
	for i, topic := range data.Topics {
		ids[i] = topic.ID
	}
	return ids
}

func TestHub_SnapshotOnJoin(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t, &fakeTrending{})
	c := testClient(hub, "us-west", 4)
	if err := hub.Join(context.Background(), c); err != nil {
		t.Fatalf("Join: %v", err)
	}

	ids := topicIDs(t, receive(t, c))
	if len(ids) != 2 || ids[1] != "reg-us-west" {
		t.Errorf("snapshot ids = %v", ids)
	}
	if hub.GetClientCount() != 1 {
		t.Errorf("clients = %d", hub.GetClientCount())
	}
}

func TestHub_BroadcastPerRegion(t *testing.T) {
	t.Parallel()

	f := &fakeTrending{}
	hub, _ := startHub(t, f)

	national := testClient(hub, "", 4)
	west1 := testClient(hub, "us-west", 4)
	west2 := testClient(hub, "us-west", 4)
	for _, c := range []*Client{national, west1, west2} {
		if err := hub.Join(context.Background(), c); err != nil {
			t.Fatalf("Join: %v", err)
		}
		receive(t, c)
	}
	before := f.count("us-west")

	hub.TopicsPublished(nil)

	if ids := topicIDs(t, receive(t, national)); len(ids) != 1 {
		t.Errorf("national ids = %v", ids)
	}
	for _, c := range []*Client{west1, west2} {
		if ids := topicIDs(t, receive(t, c)); len(ids) != 2 {
			t.Errorf("regional ids = %v", ids)
		}
	}
	if got := f.count("us-west") - before; got != 1 {
		t.Errorf("regional list computed %d times per publish, want 1", got)
	}
}

func TestHub_PublishCoalescesAndNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := NewHub((&fakeTrending{}).list, zerolog.Nop())
	for range 100 {
		hub.TopicsPublished(nil)
	}
	if len(hub.published) != 1 {
		t.Errorf("pending publishes = %d, want 1", len(hub.published))
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t, &fakeTrending{})
	slow := testClient(hub, "", 1)
	if err := hub.Join(context.Background(), slow); err != nil {
		t.Fatalf("Join: %v", err)
	}
	// The snapshot fills the buffer; the next push overflows it.
	hub.TopicsPublished(nil)

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slow client was not dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub, cancel := startHub(t, &fakeTrending{})
	c := testClient(hub, "", 4)
	if err := hub.Join(context.Background(), c); err != nil {
		t.Fatalf("Join: %v", err)
	}
	receive(t, c)
	cancel()

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed on shutdown")
	}

	<-hub.done
	if err := hub.Join(context.Background(), testClient(hub, "", 1)); !errors.Is(err, ErrHubStopped) {
		t.Errorf("Join after stop = %v, want ErrHubStopped", err)
	}
}

func TestClient_EndToEnd(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t, &fakeTrending{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, r.URL.Query().Get("region"))
		if err := hub.Join(r.Context(), c); err != nil {
			_ = conn.Close()
			return
		}
		c.Start()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?region=eu-north"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var snapshot struct {
		Type string `json:"type"`
		Data struct {
			Region string `json:"region"`
			Topics []struct {
				ID string `json:"id"`
			} `json:"topics"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Type != MessageTypeTrending || snapshot.Data.Region != "eu-north" || len(snapshot.Data.Topics) != 2 {
		t.Errorf("snapshot = %+v", snapshot)
	}

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var pong Message
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != MessageTypePong {
		t.Errorf("reply type = %q, want pong", pong.Type)
	}
}
