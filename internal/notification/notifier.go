package notification

import (
	"context"
	"fmt"
	"strings"
)

// Message is a push notification addressed to one device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

func (m Message) validate() error {
	if strings.TrimSpace(m.Token) == "" {
		return fmt.Errorf("device token is required")
	}
	if strings.TrimSpace(m.Title) == "" && strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("notification has neither title nor body")
	}
	return nil
}
