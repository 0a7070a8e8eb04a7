package updatebus

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// UpdatesStreamName is the JetStream stream Bus.SetJetStream mirrors
// published packets into.
const UpdatesStreamName = "SHELLBENCH_UPDATES"

// ConnectJetStream dials url, opens a JetStream context, and ensures
// UpdatesStreamName exists (creating it if this is a fresh NATS instance).
// The returned *nats.Conn is the caller's to close on shutdown.
func ConnectJetStream(url string) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url, nats.Name("shellbench-daemon"))
	if err != nil {
		return nil, nil, fmt.Errorf("updatebus: connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("updatebus: open jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(UpdatesStreamName); err != nil {
		_, err := js.AddStream(&nats.StreamConfig{
			Name:     UpdatesStreamName,
			Subjects: []string{updatesSubject},
		})
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("updatebus: create jetstream stream: %w", err)
		}
	}

	return nc, js, nil
}
