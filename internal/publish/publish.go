// Package publish streams sampled tracks to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"

	"github.com/ivlev/timeline/internal/config"
	"github.com/ivlev/timeline/internal/engine"
	"github.com/ivlev/timeline/internal/keyframe"
)

var ErrTimeout = errors.New("mqtt operation timed out")

// Frame is the JSON payload of one published sample.
type Frame struct {
	Property string         `json:"property"`
	Time     float64        `json:"time"`
	Value    keyframe.Value `json:"value"`
}

// Publisher sends frames on <Topic>/<property>.
type Publisher struct {
	client  mqtt.Client
	Topic   string
	QoS     byte
	Timeout time.Duration
	// Pace converts gaps between frame times into real waits: 1 replays in
	// real time, zero publishes as fast as the broker accepts.
	Pace float64
	Log  logr.Logger
}

// NewPublisher wraps a connected client.
func NewPublisher(client mqtt.Client, cfg config.MQTT) *Publisher {
	return &Publisher{
		client:  client,
		Topic:   cfg.Topic,
		QoS:     cfg.QoS,
		Timeout: cfg.Timeout,
		Log:     logr.Discard(),
	}
}

// Connect creates a client from cfg and connects it.
func Connect(cfg config.MQTT, log logr.Logger) (mqtt.Client, error) {
	options := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(cfg.KeepAlive).
		SetPingTimeout(5 * time.Second).
		SetConnectTimeout(cfg.Timeout).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("connected", "broker", cfg.URL)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Error(err, "connection lost", "broker", cfg.URL)
		})
	client := mqtt.NewClient(options)

	token := client.Connect()
	if !waitToken(token, cfg.Timeout) {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	return client, nil
}

func waitToken(token mqtt.Token, timeout time.Duration) bool {
	if timeout <= 0 {
		return token.Wait()
	}
	return token.WaitTimeout(timeout)
}

// Publish sends every point of every track in time order. Tracks are
// interleaved so that all properties of one instant go out together.
func (p *Publisher) Publish(ctx context.Context, tracks []engine.Track) (int, error) {
	frames := Interleave(tracks)
	sent := 0
	var last float64
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if p.Pace > 0 && i > 0 && f.Time > last {
			wait := time.Duration((f.Time - last) * p.Pace * float64(time.Second))
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(wait):
			}
		}
		last = f.Time

		payload, err := json.Marshal(f)
		if err != nil {
			return sent, fmt.Errorf("encode %s at %v: %w", f.Property, f.Time, err)
		}
		topic := p.Topic + "/" + f.Property
		token := p.client.Publish(topic, p.QoS, false, payload)
		if !waitToken(token, p.Timeout) {
			return sent, fmt.Errorf("publish %s: %w", topic, ErrTimeout)
		}
		if err := token.Error(); err != nil {
			return sent, fmt.Errorf("publish %s: %w", topic, err)
		}
		sent++
	}
	p.Log.V(1).Info("frames published", "count", sent, "topic", p.Topic)
	return sent, nil
}

// Interleave flattens tracks into frames ordered by time; frames at the same
// time keep track order.
func Interleave(tracks []engine.Track) []Frame {
	idx := make([]int, len(tracks))
	var out []Frame
	for {
		best := -1
		for i, tr := range tracks {
			if idx[i] >= len(tr.Points) {
				continue
			}
			if best < 0 || tr.Points[idx[i]].Time < tracks[best].Points[idx[best]].Time {
				best = i
			}
		}
		if best < 0 {
			return out
		}
		pt := tracks[best].Points[idx[best]]
		out = append(out, Frame{Property: tracks[best].Name, Time: pt.Time, Value: pt.Value})
		idx[best]++
	}
}
