package mqttlink

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient records publishes and lets a test answer them in place of the bridge.
type fakeClient struct {
	mu        sync.Mutex
	published []published
	topics    []string
	onPublish func(topic string, payload []byte)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	b := payload.([]byte)
	c.mu.Lock()
	c.published = append(c.published, published{topic, b})
	fn := c.onPublish
	c.mu.Unlock()
	if fn != nil {
		fn(topic, b)
	}
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.topics = append(c.topics, topic)
	c.mu.Unlock()
	return doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	return doneToken{}
}
