package core

import (
	"context"
	"strconv"
	"testing"
)

func benchmarkGroupBroadcast(b *testing.B, recipients int) {
	rooms := NewRooms(testLogger())
	registry := NewRegistry(rooms, testLogger())
	messages := &fakeMessageStore{}
	users := &fakeDirectory{names: map[int64]string{1: "sender"}}
	engine := NewEngine(registry, rooms, messages, users, DefaultOptions(), testLogger())

	sender := engine.Connect()
	engine.JoinGroup(sender, 1, 1)

	clients := make([]*Session, 0, recipients)
	for i := 0; i < recipients; i++ {
		s := engine.Connect()
		engine.JoinGroup(s, 1, int64(i+2))
		clients = append(clients, s)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, s := range clients[1:] {
		go func(sess *Session) {
			for range sess.Events {
			}
		}(s)
	}
	go func() {
		for range sender.Events {
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		engine.SendGroup(context.Background(), sender, 1, 1, "payload "+strconv.Itoa(i))
		for {
			if ev := <-target.Events; ev.Kind == EventNewGroupMessage {
				break
			}
		}
	}
}

func BenchmarkGroupBroadcast_10(b *testing.B)  { benchmarkGroupBroadcast(b, 10) }
func BenchmarkGroupBroadcast_100(b *testing.B) { benchmarkGroupBroadcast(b, 100) }
func BenchmarkGroupBroadcast_500(b *testing.B) { benchmarkGroupBroadcast(b, 500) }
