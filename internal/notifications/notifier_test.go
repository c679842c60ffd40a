package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"forum/internal/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "x"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {
		t.Fatal("unexpected message")
	}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}
}

func TestParseUserChannel_Rejects(t *testing.T) {
	t.Parallel()
	for _, ch := range []string{"", "notifications:user:", "notifications:user:0", "notifications:user:x", "chat:conv:1"} {
		_, ok := ParseUserChannel(ch)
		assert.False(t, ok, ch)
	}
}

func TestEncode(t *testing.T) {
	frame, err := Encode(events.New(events.CommentCreated, map[string]uint{"postId": 4}))
	require.NoError(t, err)

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(frame), &msg))
	assert.Equal(t, events.CommentCreated, msg.Type)
	assert.Equal(t, 4, msg.Payload["postId"])
}

func TestHub_StartWiringDeliversRedisFrames(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	target, _ := hub.Register(21, nil)
	other, _ := hub.Register(22, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishUser(context.Background(), 21, "direct"))
	require.NoError(t, n.PublishBroadcast(context.Background(), "everyone"))

	var got []string
	assert.Eventually(t, func() bool {
		got = append(got, drain(target)...)
		return len(got) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"direct", "everyone"}, got)

	var gotOther []string
	assert.Eventually(t, func() bool {
		gotOther = append(gotOther, drain(other)...)
		return len(gotOther) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"everyone"}, gotOther)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)

	received := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		received <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "before"))
	select {
	case p := <-received:
		assert.Equal(t, "before", p)
	case <-time.After(time.Second):
		t.Fatal("no message before cancel")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	_ = n.PublishUser(context.Background(), 1, "after")
	assert.Never(t, func() bool { return len(received) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_SubscriberRecoversFromPanic(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)

	received := make(chan string, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		if payload == "boom" {
			panic("handler exploded")
		}
		received <- payload
	}))

	require.NoError(t, n.PublishBroadcast(context.Background(), "boom"))
	require.NoError(t, n.PublishBroadcast(context.Background(), "ok"))

	select {
	case p := <-received:
		assert.Equal(t, "ok", p)
	case <-time.After(time.Second):
		t.Fatal("subscriber died after panic")
	}
}
