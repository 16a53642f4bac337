package feed

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"postboard/persist"
)

// Broadcaster fans notifications out to UI subscribers. A slow subscriber
// misses messages rather than holding up the others.
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan persist.Notification
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan persist.Notification),
	}
}

// Notify implements persist.Notifier
func (b *Broadcaster) Notify(n persist.Notification) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- n:
		default:
			log.WithFields(log.Fields{
				"key":   id,
				"level": n.Level,
			}).Warn("Client channel full, skipping notification")
		}
	}
}

func (b *Broadcaster) AddClient(key string, client chan persist.Notification) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Debug("Adding client to broadcaster")
}

// Subscribe registers a new buffered client under a generated key
func (b *Broadcaster) Subscribe(buffer int) (string, <-chan persist.Notification) {
	key := uuid.NewString()
	ch := make(chan persist.Notification, buffer)
	b.AddClient(key, ch)
	return key, ch
}

func (b *Broadcaster) RemoveClient(key string) {
	b.Lock()
	defer b.Unlock()
	if client, ok := b.clients[key]; ok {
		close(client)
		delete(b.clients, key)
	}
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Debug("Removed client from broadcaster")
}

func (b *Broadcaster) Shutdown() {
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}
