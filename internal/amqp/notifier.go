package amqp

import "context"

// Notifier adapts the queue client to the dashboard's publisher port, building
// the message envelope from the moderation decision fields.
type Notifier struct {
	client *Client
}

func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) PublishToolStatus(ctx context.Context, toolID, oldStatus, newStatus, actor string) error {
	return n.client.PublishToolStatus(ctx, NewToolStatusMessage(toolID, oldStatus, newStatus, actor))
}
