package mqttlink

import (
	"context"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/codec"
	"github.com/diebengay/grvc-utils/internal/gateway"
	"github.com/diebengay/grvc-utils/internal/mission"
)

// Operations understood by the bridge
const (
	opArm          = "arm"
	opSetMode      = "set-mode"
	opPushMission  = "push-mission"
	opClearMission = "clear-mission"
	opGetParam     = "get-param"
	opSetParam     = "set-param"
)

type request struct {
	ID        string             `json:"id" msgpack:"id"`
	Op        string             `json:"op" msgpack:"op"`
	Arm       bool               `json:"arm,omitempty" msgpack:"arm,omitempty"`
	Mode      string             `json:"mode,omitempty" msgpack:"mode,omitempty"`
	Waypoints []mission.Waypoint `json:"waypoints,omitempty" msgpack:"waypoints,omitempty"`
	Name      string             `json:"name,omitempty" msgpack:"name,omitempty"`
	Value     float64            `json:"value,omitempty" msgpack:"value,omitempty"`
}

type response struct {
	ID      string  `json:"id" msgpack:"id"`
	Success bool    `json:"success" msgpack:"success"`
	Value   float64 `json:"value" msgpack:"value"`
	Error   string  `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Gateway implements gateway.Gateway as request/response over two topics, matched
// by request ID.
type Gateway struct {
	client        Client
	codec         codec.Codec
	qos           byte
	timeout       time.Duration
	requestTopic  string
	responseTopic string

	mu      sync.Mutex
	pending map[string]chan response
}

var _ gateway.Gateway = (*Gateway)(nil)

func NewGateway(client Client, c codec.Codec, deviceID string, qos byte, timeout time.Duration) *Gateway {
	return &Gateway{
		client:        client,
		codec:         c,
		qos:           qos,
		timeout:       timeout,
		requestTopic:  autopilotTopic(deviceID, "request"),
		responseTopic: autopilotTopic(deviceID, "response"),
		pending:       make(map[string]chan response),
	}
}

// Start subscribes to the response topic.
func (g *Gateway) Start() error {
	tok := g.client.Subscribe(g.responseTopic, g.qos, func(_ mqtt.Client, m mqtt.Message) {
		g.handleResponse(m.Payload())
	})
	if !tok.WaitTimeout(g.timeout) {
		return &gateway.TransportTimeoutError{Op: "subscribe " + g.responseTopic, After: g.timeout}
	}
	return errors.WithMessagef(tok.Error(), "Unable to subscribe to topic %s", g.responseTopic)
}

func (g *Gateway) handleResponse(payload []byte) {
	var r response
	if err := g.codec.Unmarshal(payload, &r); err != nil {
		log.Printf("MQTT: could not decode response: %v", err)
		return
	}

	g.mu.Lock()
	ch, ok := g.pending[r.ID]
	delete(g.pending, r.ID)
	g.mu.Unlock()

	if !ok {
		log.Printf("MQTT: response for unknown or expired request %s", r.ID)
		return
	}
	ch <- r
}

func (g *Gateway) call(ctx context.Context, req request) (response, error) {
	start := time.Now()
	req.ID = uuid.New().String()
	ch := make(chan response, 1)

	g.mu.Lock()
	g.pending[req.ID] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, req.ID)
		g.mu.Unlock()
	}()

	payload, err := g.codec.Marshal(req)
	if err != nil {
		return response{}, errors.WithMessagef(err, "%s: could not encode request", req.Op)
	}

	tok := g.client.Publish(g.requestTopic, g.qos, false, payload)
	if !tok.WaitTimeout(g.timeout) {
		return response{}, &gateway.TransportTimeoutError{Op: req.Op, After: g.timeout}
	}
	if err := tok.Error(); err != nil {
		return response{}, errors.WithMessagef(err, "%s: could not publish request", req.Op)
	}

	timer := time.NewTimer(g.timeout - time.Since(start))
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.Error != "" {
			log.Printf("MQTT: %s answered: %s", req.Op, r.Error)
		}
		return r, nil
	case <-timer.C:
		return response{}, &gateway.TransportTimeoutError{Op: req.Op, After: g.timeout}
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (g *Gateway) Arm(ctx context.Context, arm bool) (bool, error) {
	r, err := g.call(ctx, request{Op: opArm, Arm: arm})
	return r.Success, err
}

func (g *Gateway) SetMode(ctx context.Context, mode string) (bool, error) {
	r, err := g.call(ctx, request{Op: opSetMode, Mode: mode})
	return r.Success, err
}

func (g *Gateway) PushMission(ctx context.Context, waypoints []mission.Waypoint) (bool, error) {
	r, err := g.call(ctx, request{Op: opPushMission, Waypoints: waypoints})
	return r.Success, err
}

func (g *Gateway) ClearMission(ctx context.Context) (bool, error) {
	r, err := g.call(ctx, request{Op: opClearMission})
	return r.Success, err
}

func (g *Gateway) GetParam(ctx context.Context, name string) (float64, error) {
	r, err := g.call(ctx, request{Op: opGetParam, Name: name})
	if err != nil {
		return 0, err
	}
	if !r.Success {
		return 0, &gateway.RejectedByAutopilotError{Op: opGetParam + " " + name}
	}
	return r.Value, nil
}

func (g *Gateway) SetParam(ctx context.Context, name string, value float64) (bool, error) {
	r, err := g.call(ctx, request{Op: opSetParam, Name: name, Value: value})
	return r.Success, err
}
