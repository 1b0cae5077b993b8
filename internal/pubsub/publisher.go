// Package pubsub fans model-change notifications out to downstream
// consumers. Publishing is best-effort and fire-and-forget: a failure to
// deliver never fails the worker cycle that triggered it.
package pubsub

// Publisher announces entity changes to whoever is listening.
type Publisher interface {
	// Publish sends an envelope of the given type carrying zero or more
	// changed models. It never blocks and never returns an error.
	Publish(entityType string, payload any)
}

// NopPublisher discards everything. Used in tests.
type NopPublisher struct{}

var _ Publisher = (*NopPublisher)(nil)

func (NopPublisher) Publish(string, any) {}
