package heterodyne

import (
	"fmt"
	"log"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/usnistgov/heterodyne/internal/rundb"
)

// SourceControl is the sub-server that handles configuration and operation
// of the Heterodyne synthesis source.
type SourceControl struct {
	synth *SynthSource

	status        ServerStatus
	clientUpdates chan<- ClientUpdate
	newSink       func() (DutySink, error)
	startDB       func(*rundb.RunMessage, <-chan struct{}) *rundb.Connection
	dbConn        *rundb.Connection
}

// ServerStatus is the status that SourceControl reports to clients.
type ServerStatus struct {
	Running        bool
	SourceName     string
	RunID          string
	FramesPerBlock int
	SampleRateHz   float64
}

// NewSourceControl creates a SourceControl with a fresh SynthSource and
// the default ZMQ duty sink.
func NewSourceControl() *SourceControl {
	sc := new(SourceControl)
	sc.synth = NewSynthSource()
	sc.newSink = func() (DutySink, error) { return NewZMQDutySink(Ports.Duty) }
	sc.startDB = rundb.StartConnection
	return sc
}

// ConfigureSynthSource configures the synthesis source. Fails while running.
func (s *SourceControl) ConfigureSynthSource(args *SynthSourceConfig, reply *bool) error {
	log.Printf("ConfigureSynthSource: %d frames/block, ch0 %.3f Hz %.4f V, ch1 %.3f Hz %.4f V\n",
		args.FramesPerBlock, args.Freq0, args.Amp0, args.Freq1, args.Amp1)
	err := s.synth.Configure(args)
	s.broadcast("SYNTH", args)
	*reply = (err == nil)
	return err
}

// TargetsObject is the RPC-usable structure for SetTargets.
type TargetsObject struct {
	Freq0 float64 // channel 0 frequency, Hz
	Amp0  float64 // channel 0 amplitude, volts
	Freq1 float64 // channel 1 frequency, Hz
	Amp1  float64 // channel 1 amplitude, volts
}

// SetTargets stages new target frequency/amplitude pairs for both
// channels. The RPC equivalent of one line on the command port: adopted at
// the next control tick, reached by ramping.
func (s *SourceControl) SetTargets(args *TargetsObject, reply *bool) error {
	s.synth.StageCommand(TargetCommand{
		Freq0: args.Freq0, Volts0: args.Amp0,
		Freq1: args.Freq1, Volts1: args.Amp1,
		ParsedFields: 4,
	})
	*reply = true
	return nil
}

// Start begins synthesis and attaches the duty publisher.
func (s *SourceControl) Start(dummy *string, reply *bool) error {
	sink, err := s.newSink()
	if err != nil {
		return fmt.Errorf("could not create duty sink: %v", err)
	}
	if err := Start(s.synth); err != nil {
		sink.Close()
		return err
	}
	go PublishDuty(sink, s.synth.Blocks(), s.synth.abort)
	s.startRunRecord()

	s.status.Running = true
	s.status.SourceName = "SynthSource"
	s.status.RunID = s.synth.RunID()
	s.status.FramesPerBlock = s.synth.framesPerBlock
	s.status.SampleRateHz = SampleRate
	s.broadcastStatus()
	*reply = true
	return nil
}

// Stop stops the running source, if any.
func (s *SourceControl) Stop(dummy *string, reply *bool) error {
	log.Printf("Stopping synthesis source\n")
	if err := s.synth.Stop(); err != nil {
		return err
	}
	if s.dbConn != nil {
		s.dbConn.Finish()
		s.dbConn = nil
	}
	s.synth.setAdoptHook(nil)
	s.status.Running = false
	s.status.RunID = ""
	s.broadcastStatus()
	*reply = true
	return nil
}

// SendAllStatus causes a broadcast to clients containing all broadcastable
// status info.
func (s *SourceControl) SendAllStatus(dummy *string, reply *bool) error {
	s.broadcastStatus()
	s.broadcast("SYNTHSTATUS", s.synth.statusSnapshot())
	*reply = true
	return nil
}

// TableDumpObject is the RPC-usable structure for WriteTableDump.
type TableDumpObject struct {
	Directory string
	NSamples  int
}

// WriteTableDump writes the quantized cosine table and (optionally) a
// synthesized duty window to .npy files for calibration inspection.
func (s *SourceControl) WriteTableDump(args *TableDumpObject, reply *bool) error {
	err := DumpTables(args.Directory, args.NSamples, s.synth)
	*reply = (err == nil)
	return err
}

func (s *SourceControl) broadcastStatus() {
	s.broadcast("STATUS", s.status)
}

func (s *SourceControl) broadcast(tag string, message interface{}) {
	if s.clientUpdates == nil {
		return
	}
	select {
	case s.clientUpdates <- ClientUpdate{tag, message}:
	default:
	}
}

// startRunRecord opens the optional run-bookkeeping database connection
// and hooks command adoption into it. Bookkeeping is fire-and-forget: an
// unreachable database costs a log line, never a run.
func (s *SourceControl) startRunRecord() {
	host, _ := os.Hostname()
	msg := &rundb.RunMessage{
		ID:             s.synth.RunID(),
		Hostname:       host,
		Githash:        Build.Githash,
		Version:        Build.Version,
		GoVersion:      runtime.Version(),
		SampleRateHz:   SampleRate,
		FramesPerBlock: s.synth.framesPerBlock,
		Start:          time.Now(),
	}
	s.dbConn = s.startDB(msg, s.synth.abort)
	runID := msg.ID
	conn := s.dbConn
	s.synth.setAdoptHook(func(cmd TargetCommand) {
		conn.RecordCommand(&rundb.CommandMessage{
			RunID:        runID,
			Raw:          cmd.Raw,
			Freq0:        cmd.Freq0,
			Volts0:       cmd.Volts0,
			Freq1:        cmd.Freq1,
			Volts1:       cmd.Volts1,
			ParsedFields: cmd.ParsedFields,
			When:         time.Now(),
		})
	})
}

// RunRPCServer sets up and runs a permanent JSON-RPC server. It also owns
// the line-oriented command listener and a slow status-broadcast ticker.
func RunRPCServer(messageChan chan<- ClientUpdate, portrpc int) {
	sourceControl := NewSourceControl()
	sourceControl.clientUpdates = messageChan
	sourceControl.synth.updates = messageChan

	// Load stored settings.
	log.Printf("Heterodyne is using config file %s\n", viper.ConfigFileUsed())
	var okay bool
	var config SynthSourceConfig
	if err := viper.UnmarshalKey("synth", &config); err == nil && config.FramesPerBlock > 0 {
		if err := sourceControl.ConfigureSynthSource(&config, &okay); err != nil {
			ProblemLogger.Printf("stored synth config rejected: %v\n", err)
		}
	}

	go func() {
		if err := ListenCommands(sourceControl.synth, Ports.Command); err != nil {
			ProblemLogger.Printf("%v\n", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			sourceControl.broadcastStatus()
		}
	}()

	// Now launch the connection handler and accept connections.
	server := rpc.NewServer()
	if err := server.Register(sourceControl); err != nil {
		log.Fatal("register error: " + err.Error())
	}
	server.HandleHTTP(rpc.DefaultRPCPath, rpc.DefaultDebugPath)
	port := fmt.Sprintf(":%d", portrpc)
	listener, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatal("listen error:", err)
	}
	for {
		if conn, err := listener.Accept(); err != nil {
			log.Fatal("accept error: " + err.Error())
		} else {
			log.Printf("new connection established\n")
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}
}
