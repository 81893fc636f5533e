package heterodyne

import (
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

// DutySink consumes the four duty-cycle bytes per sample tick. It is the
// Output Sink boundary: on the original hardware this is four PWM duty
// registers; here implementations forward frames to whatever stands in
// for them.
type DutySink interface {
	WriteBlock(*DutyBlock) error
	Close()
}

// PublishDuty forwards synthesized blocks to a sink until the abort
// channel closes. Sink errors are logged, not fatal: a lost block is the
// software analog of a missed interrupt deadline.
func PublishDuty(sink DutySink, blocks <-chan *DutyBlock, abort <-chan struct{}) {
	defer sink.Close()
	for {
		select {
		case <-abort:
			return
		case block := <-blocks:
			if block == nil {
				return
			}
			if err := sink.WriteBlock(block); err != nil {
				ProblemLogger.Printf("duty sink write: %v\n", err)
			}
		}
	}
}

// ZMQDutySink publishes duty blocks on a ZMQ PUB socket as three-frame
// messages: the "DUTY" tag, an 8-byte little-endian first-frame index, and
// the packed frame bytes (4 per sample: ch0, ch1, sum, diff).
type ZMQDutySink struct {
	socket *zmq.Socket
}

// NewZMQDutySink creates a duty publisher bound to the given port.
func NewZMQDutySink(portduty int) (*ZMQDutySink, error) {
	socket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	hostname := fmt.Sprintf("tcp://*:%d", portduty)
	if err = socket.Bind(hostname); err != nil {
		socket.Close()
		return nil, err
	}
	return &ZMQDutySink{socket: socket}, nil
}

// WriteBlock publishes one block.
func (s *ZMQDutySink) WriteBlock(block *DutyBlock) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, uint64(block.FirstFrameIndex))
	payload := make([]byte, 0, 4*len(block.Frames))
	for _, f := range block.Frames {
		payload = append(payload, f[:]...)
	}
	_, err := s.socket.SendMessage("DUTY", header, payload)
	return err
}

// Close releases the socket.
func (s *ZMQDutySink) Close() {
	if s.socket != nil {
		s.socket.Close()
	}
}

// DiscardSink throws frames away. Useful when no consumer is attached and
// in tests.
type DiscardSink struct{}

// WriteBlock discards the block.
func (DiscardSink) WriteBlock(*DutyBlock) error { return nil }

// Close is a no-op.
func (DiscardSink) Close() {}
