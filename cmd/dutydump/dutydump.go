// Dutydump subscribes to a running heterodyne daemon's duty-cycle stream
// and prints frames, for eyeballing the output without PWM hardware.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"

	zmq "github.com/pebbe/zmq4"
	"github.com/usnistgov/heterodyne"
)

func dumpframes(firstIndex uint64, payload []byte, max int) {
	nframes := len(payload) / 4
	if max > nframes {
		max = nframes
	}
	fmt.Printf("Block of %d frames starting at sample %d (ch0 ch1 sum diff):\n", nframes, firstIndex)
	for i := 0; i < max; i++ {
		f := payload[4*i : 4*i+4]
		fmt.Printf("%8d: %3d %3d %3d %3d\n", firstIndex+uint64(i), f[0], f[1], f[2], f[3])
	}
}

func dump(host string, nblocks, framesPerBlock int) error {
	sub, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return err
	}
	defer sub.Close()
	addr := fmt.Sprintf("tcp://%s:%d", host, heterodyne.Ports.Duty)
	if err = sub.Connect(addr); err != nil {
		return err
	}
	if err = sub.SetSubscribe("DUTY"); err != nil {
		return err
	}
	fmt.Println("Subscribed to duty stream at", addr)

	for b := 0; b < nblocks; b++ {
		msg, err := sub.RecvMessageBytes(0)
		if err != nil {
			return err
		}
		if len(msg) != 3 {
			return fmt.Errorf("duty message has %d parts, want 3", len(msg))
		}
		firstIndex := binary.LittleEndian.Uint64(msg[1])
		dumpframes(firstIndex, msg[2], framesPerBlock)
	}
	return nil
}

func main() {
	host := flag.String("host", "localhost", "heterodyne daemon host")
	nblocks := flag.Int("blocks", 1, "number of blocks to dump")
	nframes := flag.Int("frames", 16, "frames to print per block")
	flag.Parse()

	if err := dump(*host, *nblocks, *nframes); err != nil {
		log.Fatal(err)
	}
}
