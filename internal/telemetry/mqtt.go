// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/telemetry/mqtt.go
// Summary: Publishes session events to MQTT and accepts remote control commands.
// Usage: Optional; enabled when mqtt.broker is configured.
// Notes: Observer callbacks only queue events; a sender goroutine publishes them.

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/framegrace/texelar/internal/control"
	"github.com/framegrace/texelar/internal/session"
	"github.com/framegrace/texelar/internal/tracking"
)

// MQTTConfig describes the broker connection and topics.
type MQTTConfig struct {
	Broker   string
	ClientID string
	// Prefix is prepended to every topic, e.g. "texelar/kiosk-1".
	Prefix string
	QoS    byte
}

// Event is the JSON payload published for session notifications.
type Event struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	Folder      string `json:"folder"`
	Name        string `json:"name,omitempty"`
	TargetIndex *int   `json:"target_index,omitempty"`
	Error       string `json:"error,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Response acknowledges a control command.
type Response struct {
	CommandAck string      `json:"command_ack"`
	Status     string      `json:"status"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

// Publisher is a session.Observer that mirrors events onto MQTT.
type Publisher struct {
	cfg    MQTTConfig
	client mqtt.Client
	now    func() time.Time

	events   chan Event
	sent     chan struct{}
	commands chan control.Command
	stopOnce sync.Once
	done     chan struct{}

	published atomic.Uint64
	errors    atomic.Uint64
}

const eventQueueSize = 64

// NewPublisher wraps an already configured client and starts its sender.
func NewPublisher(cfg MQTTConfig, client mqtt.Client) *Publisher {
	p := &Publisher{
		cfg:      cfg,
		client:   client,
		now:      time.Now,
		events:   make(chan Event, eventQueueSize),
		sent:     make(chan struct{}),
		commands: make(chan control.Command, 10),
		done:     make(chan struct{}),
	}
	go p.sendEvents()
	return p
}

// ConnectMQTT dials the broker with auto-reconnect enabled.
func ConnectMQTT(cfg MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Printf("Telemetry: mqtt connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("Telemetry: mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return NewPublisher(cfg, client), nil
}

func (p *Publisher) topic(suffix string) string {
	if p.cfg.Prefix == "" {
		return suffix
	}
	return p.cfg.Prefix + "/" + suffix
}

func (p *Publisher) publish(suffix string, v interface{}) error {
	if !p.client.IsConnected() {
		p.errors.Add(1)
		return fmt.Errorf("mqtt not connected")
	}
	payload, err := json.Marshal(v)
	if err != nil {
		p.errors.Add(1)
		return err
	}
	token := p.client.Publish(p.topic(suffix), p.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.errors.Add(1)
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		p.errors.Add(1)
		return fmt.Errorf("publish failed: %w", err)
	}
	p.published.Add(1)
	return nil
}

func (p *Publisher) event(typ string, info session.Info, err error) Event {
	ev := Event{
		Type:      typ,
		SessionID: info.ID,
		Folder:    info.Folder,
		Name:      info.Name,
		Timestamp: p.now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// emit queues ev for the sender. A full queue drops the event.
func (p *Publisher) emit(ev Event) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.events <- ev:
	default:
		p.errors.Add(1)
		debugLog.Printf("Telemetry: event queue full, dropping %s", ev.Type)
	}
}

// sendEvents publishes queued events until Close, then flushes what is left.
func (p *Publisher) sendEvents() {
	defer close(p.sent)
	send := func(ev Event) {
		if err := p.publish("events/"+ev.Type, ev); err != nil {
			debugLog.Printf("Telemetry: %s: %v", ev.Type, err)
		}
	}
	for {
		select {
		case ev := <-p.events:
			send(ev)
		case <-p.done:
			for {
				select {
				case ev := <-p.events:
					send(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) SessionStarted(info session.Info) {
	p.emit(p.event("session_started", info, nil))
}

func (p *Publisher) SessionEnded(info session.Info, err error) {
	p.emit(p.event("session_ended", info, err))
}

func (p *Publisher) SessionFailed(info session.Info, err error) {
	p.emit(p.event("session_failed", info, err))
}

func (p *Publisher) TargetEvent(info session.Info, kind tracking.EventKind, targetIndex int) {
	ev := p.event("target_"+kind.String(), info, nil)
	ev.TargetIndex = &targetIndex
	p.emit(ev)
}

// ServeControl subscribes to <prefix>/control and dispatches commands to bus
// until ctx is done. Each command is acknowledged on <prefix>/control/ack.
func (p *Publisher) ServeControl(ctx context.Context, bus *control.Bus) error {
	token := p.client.Subscribe(p.topic("control"), p.cfg.QoS, p.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control subscription failed: %w", err)
	}
	go p.processCommands(ctx, bus)
	return nil
}

func (p *Publisher) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	cmd, err := control.ParseCommand(msg.Payload())
	if err != nil {
		p.respond(Response{CommandAck: "unknown", Status: "error", Error: err.Error()})
		return
	}
	select {
	case p.commands <- cmd:
	case <-p.done:
	default:
		log.Printf("Telemetry: command queue full, dropping %s", cmd.Command)
	}
}

func (p *Publisher) processCommands(ctx context.Context, bus *control.Bus) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case cmd := <-p.commands:
			resp := Response{CommandAck: cmd.Command, Status: "success"}
			data, err := bus.Trigger(cmd.Command, cmd.Arg)
			if err != nil {
				resp.Status = "error"
				resp.Error = err.Error()
			} else {
				resp.Data = data
			}
			p.respond(resp)
		}
	}
}

func (p *Publisher) respond(resp Response) {
	resp.Timestamp = p.now().UTC().Format(time.RFC3339Nano)
	if err := p.publish("control/ack", resp); err != nil {
		debugLog.Printf("Telemetry: ack %s: %v", resp.CommandAck, err)
	}
}

func (p *Publisher) stats() (published, failed uint64) {
	return p.published.Load(), p.errors.Load()
}

// Close flushes queued events, stops command processing and disconnects.
func (p *Publisher) Close() {
	p.stopOnce.Do(func() {
		close(p.done)
		<-p.sent
		published, failed := p.stats()
		log.Printf("Telemetry: mqtt published %d messages, %d failed", published, failed)
		if p.client.IsConnected() {
			p.client.Unsubscribe(p.topic("control")).WaitTimeout(time.Second)
			p.client.Disconnect(250)
		}
	})
}

var _ session.Observer = (*Publisher)(nil)
