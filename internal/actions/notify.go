package actions

import (
	"context"
	"fmt"
)

// Sender delivers a message to the fixed notification destination.
type Sender interface {
	Send(ctx context.Context, message string) (string, error)
}

// Notify publishes a message through the configured notifier.
type Notify struct {
	Sender Sender
}

func (Notify) Name() string { return NameNotify }

func (Notify) Description() string {
	return "Send a message to the incident Slack channel. The argument is the message text; include the name of the DAG that failed."
}

func (a Notify) Run(ctx context.Context, argument string) (string, error) {
	confirmation, err := a.Sender.Send(ctx, argument)
	if err != nil {
		return "", fmt.Errorf("send notification: %w", err)
	}
	return confirmation, nil
}
