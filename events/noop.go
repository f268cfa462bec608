package events

import "context"

// NoopPublisher drops every event. The server runs with it until
// LOOPWALK_NATS_URL names a broker.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(_ context.Context, _ string, _ any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
