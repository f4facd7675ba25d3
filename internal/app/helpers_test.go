package app

import (
	"context"
	"errors"
	"sync"

	"github.com/pscheid92/roomhub/internal/domain"
)

type sentEvent struct {
	To      domain.ConnectionID
	Event   string
	Payload any
}

type fakeTransport struct {
	mu           sync.Mutex
	sent         []sentEvent
	disconnected []domain.ConnectionID

	open   func(domain.OpenEvent)
	close  func(domain.ConnectionID)
	rooms  func(domain.RoomRequest)
	failTo map[domain.ConnectionID]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failTo: make(map[domain.ConnectionID]bool)}
}

func (f *fakeTransport) OnOpen(h func(domain.OpenEvent))          { f.open = h }
func (f *fakeTransport) OnClose(h func(domain.ConnectionID))      { f.close = h }
func (f *fakeTransport) OnRoomRequest(h func(domain.RoomRequest)) { f.rooms = h }

func (f *fakeTransport) Send(id domain.ConnectionID, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTo[id] {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, sentEvent{To: id, Event: event, Payload: payload})
	return nil
}

func (f *fakeTransport) Disconnect(id domain.ConnectionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, id)
}

func (f *fakeTransport) events() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.sent...)
}

func (f *fakeTransport) recipients(event string) map[domain.ConnectionID]int {
	got := make(map[domain.ConnectionID]int)
	for _, e := range f.events() {
		if e.Event == event {
			got[e.To]++
		}
	}
	return got
}

type fakeRelay struct {
	mu        sync.Mutex
	published []domain.Broadcast
	err       error
}

func (r *fakeRelay) Publish(_ context.Context, b domain.Broadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, b)
	return r.err
}

func (r *fakeRelay) all() []domain.Broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Broadcast(nil), r.published...)
}

func user(id, conversation string) domain.Identity {
	return domain.Identity{UserID: id, Role: domain.RoleUser, ConversationID: conversation}
}

func admin(id string) domain.Identity {
	return domain.Identity{UserID: id, Role: domain.RoleAdmin}
}
