package ws

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSendEventDisconnectsOnOverflow(t *testing.T) {
	client := NewClient(nil, "abcd1234", "alice", 2)

	client.SendEvent([]byte("one"))
	client.SendEvent([]byte("two"))
	if client.IsClosed() {
		t.Fatal("client closed before the queue was full")
	}

	// The queue is full; an authoritative event cannot be dropped, so
	// the client must be disconnected instead.
	client.SendEvent([]byte("three"))
	if !client.IsClosed() {
		t.Fatal("client should be closed after authoritative overflow")
	}

	// The frames queued before the overflow are still drained.
	if got := string(<-client.SendChan()); got != "one" {
		t.Errorf("first queued frame = %q, want %q", got, "one")
	}
	if got := string(<-client.SendChan()); got != "two" {
		t.Errorf("second queued frame = %q, want %q", got, "two")
	}
	if _, ok := <-client.SendChan(); ok {
		t.Error("send channel should be closed after the drain")
	}
}

func TestSendTransientDropsOnOverflow(t *testing.T) {
	client := NewClient(nil, "abcd1234", "alice", 2)

	client.SendTransient([]byte("one"))
	client.SendTransient([]byte("two"))
	client.SendTransient([]byte("three"))

	if client.IsClosed() {
		t.Fatal("transient overflow must not disconnect the client")
	}
	if got := len(client.send); got != 2 {
		t.Errorf("queue holds %d frames, want 2", got)
	}
}

func TestSendAfterCloseIsIgnored(t *testing.T) {
	client := NewClient(nil, "abcd1234", "alice", 4)
	client.Close()

	// Neither call may panic on the closed channel.
	client.SendEvent([]byte("late"))
	client.SendTransient([]byte("late"))

	if _, ok := <-client.SendChan(); ok {
		t.Error("closed client should deliver nothing")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	client := NewClient(nil, "abcd1234", "alice", 4)
	client.Close()
	client.Close()

	if !client.IsClosed() {
		t.Error("client should report closed")
	}
}

func TestTransientDeliveryUnderPressure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Ephemeral sends never close the client and never exceed the
	// buffer, no matter how many arrive.
	properties.Property("transient floods neither block nor disconnect", prop.ForAll(
		func(buffer, sends int) bool {
			client := NewClient(nil, "abcd1234", "alice", buffer)

			for i := 0; i < sends; i++ {
				client.SendTransient([]byte("cursor"))
			}

			if client.IsClosed() {
				return false
			}
			queued := len(client.send)
			if queued > buffer {
				return false
			}
			expected := sends
			if expected > buffer {
				expected = buffer
			}
			return queued == expected
		},
		gen.IntRange(1, 64),
		gen.IntRange(0, 200),
	))

	properties.TestingRun(t)
}
