package heterodyne

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
)

// TargetCommand is one parsed line of the target command protocol:
// "frequency0 amplitude0 frequency1 amplitude1", frequencies in Hz and
// amplitudes in volts. ParsedFields counts how many of the four fields
// parsed successfully; the rest were adopted as zero.
type TargetCommand struct {
	Freq0        float64
	Volts0       float64
	Freq1        float64
	Volts1       float64
	ParsedFields int
	Raw          string
}

// ParseCommand parses one command line. Fields that are missing or fail to
// parse become zero and the command is adopted anyway; the diagnostic echo
// shows operators what was actually adopted.
func ParseCommand(line string) TargetCommand {
	cmd := TargetCommand{Raw: strings.TrimSpace(line)}
	fields := strings.Fields(line)
	var vals [4]float64
	for i := 0; i < 4 && i < len(fields); i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			continue
		}
		vals[i] = v
		cmd.ParsedFields++
	}
	cmd.Freq0, cmd.Volts0, cmd.Freq1, cmd.Volts1 = vals[0], vals[1], vals[2], vals[3]
	return cmd
}

// pendingCommand stages at most one command for adoption at the next
// control tick. Only the latest targets matter: a new command before the
// previous one is adopted simply replaces it (last-write-wins).
type pendingCommand struct {
	lock    sync.Mutex
	cmd     TargetCommand
	present bool
}

func (p *pendingCommand) set(cmd TargetCommand) {
	p.lock.Lock()
	p.cmd = cmd
	p.present = true
	p.lock.Unlock()
}

func (p *pendingCommand) take() (TargetCommand, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.present {
		return TargetCommand{}, false
	}
	p.present = false
	return p.cmd, true
}

// ListenCommands accepts connections on the command port and feeds each
// line through ParseCommand into the source's pending slot. It echoes the
// staged values back on the same connection as the only acknowledgment.
// Runs until the listener fails; one goroutine per connection.
func ListenCommands(ss *SynthSource, portcommand int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", portcommand))
	if err != nil {
		return fmt.Errorf("command listener: %v", err)
	}
	defer listener.Close()
	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("command accept: %v", err)
		}
		UpdateLogger.Printf("new command connection from %s\n", conn.RemoteAddr())
		go serveCommandConn(ss, conn)
	}
}

func serveCommandConn(ss *SynthSource, conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := ParseCommand(scanner.Text())
		ss.StageCommand(cmd)
		fmt.Fprintf(conn, "targets %.3f %.4f %.3f %.4f (%d/4 fields)\n",
			cmd.Freq0, cmd.Volts0, cmd.Freq1, cmd.Volts1, cmd.ParsedFields)
	}
	if err := scanner.Err(); err != nil {
		ProblemLogger.Printf("command connection from %s: %v\n", conn.RemoteAddr(), err)
	}
}
