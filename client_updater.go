package heterodyne

// Contains the client updater, which publishes JSON-encoded messages
// giving the latest Heterodyne state.

import (
	"encoding/json"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// ClientUpdate carries the messages to be published on the status port.
type ClientUpdate struct {
	Tag     string
	Message interface{}
}

// RunClientUpdater forwards any message from its input channel to the ZMQ
// publisher socket, as a two-frame message: tag, then JSON payload.
func RunClientUpdater(messages <-chan ClientUpdate, portstatus int, abort <-chan struct{}) {
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		ProblemLogger.Printf("could not create status PUB socket: %v\n", err)
		return
	}
	defer pubSocket.Close()
	hostname := fmt.Sprintf("tcp://*:%d", portstatus)
	if err = pubSocket.Bind(hostname); err != nil {
		ProblemLogger.Printf("could not bind status PUB socket to %s: %v\n", hostname, err)
		return
	}

	for {
		select {
		case <-abort:
			return
		case update := <-messages:
			payload, err := json.Marshal(update.Message)
			if err != nil {
				ProblemLogger.Printf("could not encode %s update: %v\n", update.Tag, err)
				continue
			}
			if _, err := pubSocket.SendMessage(update.Tag, payload); err != nil {
				ProblemLogger.Printf("could not publish %s update: %v\n", update.Tag, err)
			}
		}
	}
}
