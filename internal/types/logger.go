package types

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

type logger struct {
	skip map[string]bool
}

// NewLogger logs every bus message except the high-rate telemetry kinds.
func NewLogger() MessageHandler {
	return &logger{
		skip: map[string]bool{
			MessageLocalPose:     true,
			MessageGlobalFix:     true,
			MessageLocalVelocity: true,
			MessageBodyVelocity:  true,
		},
	}
}

func (l *logger) Receive(message Message) {
	if l.skip[message.MessageType] {
		return
	}

	b, _ := json.Marshal(message.Message)
	log.Printf("Message: %s (%s -> %s): %s", message.MessageType, message.From, message.To, string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
