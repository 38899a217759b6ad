// broker/broker.go
package broker

import (
	"sync"
	"time"
)

const (
	subscriberBuffer = 16

	DefaultRetention = 15 * time.Minute
)

// Terminal is implemented by messages that end their topic. Once a terminal
// message has been retained for the broker's retention period and the topic has
// no subscribers, the topic is forgotten.
type Terminal interface {
	Final() bool
}

type retained struct {
	msg     interface{}
	expired bool
}

// Broker fans messages out to topic subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the message. The last message of each
// topic is retained and handed to new subscribers.
type Broker struct {
	subscribers map[string][]chan interface{}
	last        map[string]*retained
	retention   time.Duration
	mu          sync.RWMutex
}

type Option func(*Broker)

// WithRetention sets how long a topic's terminal message stays available.
// Zero or less keeps it forever.
func WithRetention(d time.Duration) Option {
	return func(b *Broker) {
		b.retention = d
	}
}

func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subscribers: make(map[string][]chan interface{}),
		last:        make(map[string]*retained),
		retention:   DefaultRetention,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) Subscribe(topic string) <-chan interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan interface{}, subscriberBuffer)
	if r, ok := b.last[topic]; ok {
		ch <- r.msg
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch <-chan interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chans, ok := b.subscribers[topic]; ok {
		for i, c := range chans {
			if c == ch {
				b.subscribers[topic] = append(chans[:i], chans[i+1:]...)
				close(c)
				break
			}
		}
		if len(b.subscribers[topic]) == 0 {
			delete(b.subscribers, topic)
			if r, ok := b.last[topic]; ok && r.expired {
				delete(b.last, topic)
			}
		}
	}
}

func (b *Broker) Publish(topic string, msg interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &retained{msg: msg}
	b.last[topic] = r
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	if t, ok := msg.(Terminal); ok && t.Final() && b.retention > 0 {
		time.AfterFunc(b.retention, func() { b.expire(topic, r) })
	}
}

// Last returns the most recent message published on topic.
func (b *Broker) Last(topic string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.last[topic]
	if !ok {
		return nil, false
	}
	return r.msg, true
}

func (b *Broker) expire(topic string, r *retained) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last[topic] != r {
		return
	}
	r.expired = true
	if len(b.subscribers[topic]) == 0 {
		delete(b.last, topic)
	}
}
