package types

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestHeading(t *testing.T) {
	tests := []struct {
		yaw      float64
		expected float64
	}{
		{0, 90},
		{math.Pi / 4, 45},
		{math.Pi, 270},
		{-math.Pi / 2, 180},
	}
	for _, test := range tests {
		got := QuaternionFromYaw(test.yaw).Heading()
		if math.Abs(got-test.expected) > 1e-9 {
			t.Errorf("yaw %v: got %v, expected %v", test.yaw, got, test.expected)
		}
	}
	if got := (Quaternion{}).Heading(); got != 90 {
		t.Errorf("got %v, expected the zero quaternion to face east", got)
	}
}

func TestStringMessageRoundTrip(t *testing.T) {
	msg := CreateMessage(MessageWaypointReached, "autopilot", "uav-1", WaypointReached{Seq: 2})
	sm, err := msg.ToJsonMessage()
	if err != nil {
		t.Fatal(err)
	}
	if sm.Message != `{"wp_seq":2}` || sm.ID != msg.ID {
		t.Errorf("got %+v", sm)
	}
	back := sm.Replace(WaypointReached{Seq: 2})
	if back.ID != msg.ID || back.MessageType != MessageWaypointReached {
		t.Errorf("got %+v", back)
	}
}

type recorder struct {
	mu       sync.Mutex
	received []string
	started  chan PostFn
}

func (r *recorder) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
	r.started <- post
}

func (r *recorder) Receive(message Message) {
	r.mu.Lock()
	r.received = append(r.received, message.MessageType)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

func TestMessageBusFansOut(t *testing.T) {
	a := &recorder{started: make(chan PostFn, 1)}
	b := &recorder{started: make(chan PostFn, 1)}
	bus := NewMessageBus(make(chan Message, 10), a, b)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	go bus.Run(ctx, &wg)

	post := <-a.started
	<-b.started
	post(CreateMessage(MessageCommand, "test", "*", nil))
	bus.Post(CreateMessage(MessageFlightState, "test", "*", nil))

	deadline := time.Now().Add(2 * time.Second)
	for (a.count() < 2 || b.count() < 2) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("got %d and %d messages, expected 2 each", a.count(), b.count())
	}
}
