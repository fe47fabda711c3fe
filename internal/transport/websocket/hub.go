// Package websocket
package websocket

import (
	"context"
	"encoding/json"

	"klv-monitor/internal/domain"
	corehub "klv-monitor/internal/hub"
	"klv-monitor/internal/logger"
)

// VisibilityGate is how the consumer boundary drives visibility-gated
// sampling. Implemented by the sampler scheduler.
type VisibilityGate interface {
	SetVisible(class domain.MetricClass, visible bool)
}

// GatedClasses are sampled only while at least one connected client reports
// their view visible.
var GatedClasses = []domain.MetricClass{domain.ClassProcess, domain.ClassFilesystem}

type Hub struct {
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	// visible tracks, per gated class, which clients currently show it.
	visible map[domain.MetricClass]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *Subscription
	unsubscribe chan *Subscription
	visibility  chan *visibilityChange

	events chan *Event

	gate VisibilityGate
	log  logger.Logger
}

type Subscription struct {
	client  *Client
	channel string
}

type visibilityChange struct {
	client  *Client
	class   domain.MetricClass
	visible bool
}

// Event is one message broadcast to a channel's subscribers.
type Event struct {
	Channel string `json:"channel,omitempty"`
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// ChannelFor names the broadcast channel of a metric class.
func ChannelFor(class domain.MetricClass) string {
	return "metrics:" + string(class)
}

func NewHub(gate VisibilityGate, log logger.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		channels: make(map[string]map[*Client]bool),
		visible:  make(map[domain.MetricClass]map[*Client]bool),

		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *Subscription),
		unsubscribe: make(chan *Subscription),
		visibility:  make(chan *visibilityChange, 16),

		events: make(chan *Event, 256),

		gate: gate,
		log:  log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("ws: client registered", "id", client.ID, "total_clients", len(h.clients))

		case client := <-h.unregister:
			h.dropClient(client)

		case sub := <-h.subscribe:
			if h.channels[sub.channel] == nil {
				h.channels[sub.channel] = make(map[*Client]bool)
			}
			h.channels[sub.channel][sub.client] = true
			h.log.Debug("ws: client subscribed", "id", sub.client.ID, "channel", sub.channel)

		case sub := <-h.unsubscribe:
			if subs, ok := h.channels[sub.channel]; ok {
				delete(subs, sub.client)
				if len(subs) == 0 {
					delete(h.channels, sub.channel)
				}
				h.log.Debug("ws: client unsubscribed", "id", sub.client.ID, "channel", sub.channel)
			}

		case change := <-h.visibility:
			h.applyVisibility(change)

		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

// Broadcast queues an event for every subscriber of a channel. Never blocks
// the caller; the hub loop drops to slow clients instead.
func (h *Hub) Broadcast(channel, event string, payload any) {
	select {
	case h.events <- &Event{Channel: channel, Event: event, Payload: payload}:
	default:
		h.log.Warn("ws: event queue full, dropping broadcast", "channel", channel)
	}
}

func (h *Hub) broadcast(event *Event) {
	subs, ok := h.channels[event.Channel]
	if !ok || len(subs) == 0 {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		h.log.Error("ws: failed to marshal event", "error", err)
		return
	}

	for client := range subs {
		select {
		case client.send <- message:
		default:
			h.log.Warn("ws: client send buffer full, force unregister", "id", client.ID)
			h.dropClient(client)
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for channel, subs := range h.channels {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}

	for class, viewers := range h.visible {
		if viewers[client] {
			delete(viewers, client)
			if len(viewers) == 0 {
				h.gate.SetVisible(class, false)
			}
		}
	}

	h.log.Info("ws: client unregistered", "id", client.ID, "total_clients", len(h.clients))
}

// applyVisibility keeps a per-class set of viewing clients; the class is
// sampled while the set is non-empty.
func (h *Hub) applyVisibility(change *visibilityChange) {
	if h.visible[change.class] == nil {
		h.visible[change.class] = make(map[*Client]bool)
	}
	viewers := h.visible[change.class]

	if change.visible {
		wasEmpty := len(viewers) == 0
		viewers[change.client] = true
		if wasEmpty {
			h.gate.SetVisible(change.class, true)
		}
	} else {
		delete(viewers, change.client)
		if len(viewers) == 0 {
			h.gate.SetVisible(change.class, false)
		}
	}
}

// StreamSamples forwards every published sample of the given classes to the
// matching ws channel until ctx is cancelled.
func StreamSamples(ctx context.Context, wsHub *Hub, core *corehub.Hub, classes []domain.MetricClass) {
	for _, class := range classes {
		sub := core.Subscribe(class, 64)
		go func(class domain.MetricClass, sub *corehub.Subscription) {
			defer sub.Cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case s, ok := <-sub.C():
					if !ok {
						return
					}
					wsHub.Broadcast(ChannelFor(class), "metrics.sample", s)
				}
			}
		}(class, sub)
	}
}
