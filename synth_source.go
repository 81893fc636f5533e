package heterodyne

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"
)

// SourceState is used to indicate the active/inactive/transition state of the source
type SourceState int

// Names for the possible values of SourceState
const (
	Inactive SourceState = iota // Source is not active
	Starting                    // Source is in transition to Active state
	Active                      // Source is actively synthesizing
	Stopping                    // Source is in transition to Inactive state
)

// Control-plane cadence. The control loop is deliberately much slower than
// the sample rate: it adopts pending commands, runs the anti-click ramper,
// and drives the liveness blinker.
const (
	ControlTickPeriod    = 10 * time.Millisecond
	blinkHalfPeriodTicks = 50  // control ticks between blinker toggles (2 Hz blink)
	statusPeriodTicks    = 200 // control ticks between status broadcasts
)

// SynthSourceConfig holds the arguments needed to configure a SynthSource by RPC
// or from the persisted "synth" configuration key.
type SynthSourceConfig struct {
	FramesPerBlock int     // samples synthesized per paced wakeup
	Freq0          float64 // channel 0 startup target frequency (Hz)
	Amp0           float64 // channel 0 startup target amplitude (V)
	Freq1          float64 // channel 1 startup target frequency (Hz)
	Amp1           float64 // channel 1 startup target amplitude (V)
}

// DutyBlock is one paced wakeup's worth of output frames.
type DutyBlock struct {
	Frames          []DutyFrame
	FirstFrameIndex int64
	Time            time.Time
}

// SynthSource synthesizes two cosine channels plus their sum and difference
// as duty-cycle frames. The sample path (synthesizeBlock) runs in its own
// goroutine at a fixed block cadence, standing in for the sample-tick
// interrupt: it never blocks on the control plane, never takes a lock, and
// performs no per-sample allocation. A late wakeup degrades pacing and
// nothing else.
type SynthSource struct {
	framesPerBlock int
	timeperbuf     time.Duration
	lastread       time.Time
	sampleCount    atomic.Int64

	chans   [2]*Channel
	cosine  *WaveTable
	pending pendingCommand
	blinker Blinker
	blinkOn bool
	updates chan<- ClientUpdate
	onAdopt func(TargetCommand) // optional bookkeeping hook, control-tick context

	abort     chan struct{}
	nextBlock chan *DutyBlock
	runID     string
	runMutex  sync.Mutex
	runDone   sync.WaitGroup

	sourceState     SourceState
	sourceStateLock sync.Mutex

	configured bool
	blinkTicks int
	statTicks  int
}

// NewSynthSource creates a SynthSource with both channels at zero targets.
func NewSynthSource() *SynthSource {
	ss := new(SynthSource)
	ss.chans[0] = new(Channel)
	ss.chans[1] = new(Channel)
	ss.cosine = NewCosineTable()
	ss.blinker = nullBlinker{}
	return ss
}

// Configure sets the block size and startup targets. Safe only when the
// source is not running.
func (ss *SynthSource) Configure(config *SynthSourceConfig) error {
	ss.sourceStateLock.Lock()
	defer ss.sourceStateLock.Unlock()
	if ss.sourceState != Inactive {
		return fmt.Errorf("cannot Configure a SynthSource if it's not Inactive")
	}
	if config.FramesPerBlock <= 0 {
		return fmt.Errorf("framesPerBlock is %d, want > 0", config.FramesPerBlock)
	}
	ss.framesPerBlock = config.FramesPerBlock
	blockTime := float64(config.FramesPerBlock) / float64(SampleRate)
	ss.timeperbuf = time.Duration(float64(time.Second) * blockTime)
	ss.pending.set(TargetCommand{
		Freq0: config.Freq0, Volts0: config.Amp0,
		Freq1: config.Freq1, Volts1: config.Amp1,
		ParsedFields: 4,
	})
	ss.configured = true
	return nil
}

// SetBlinker registers the liveness indicator driven by the control loop.
func (ss *SynthSource) SetBlinker(b Blinker) {
	if b != nil {
		ss.blinker = b
	}
}

// StageCommand queues new targets for adoption at the top of the next
// control tick. Both channels' targets are always adopted together, so the
// ramper never sees a half-applied command.
func (ss *SynthSource) StageCommand(cmd TargetCommand) {
	ss.pending.set(cmd)
}

// Sample verifies the source is ready to run. Synthesis has no hardware to
// probe, so this only checks configuration.
func (ss *SynthSource) Sample() error {
	if !ss.configured {
		return fmt.Errorf("SynthSource is not configured")
	}
	return nil
}

// RunID returns the ULID identifying the current (or last) run.
func (ss *SynthSource) RunID() string {
	ss.runMutex.Lock()
	defer ss.runMutex.Unlock()
	return ss.runID
}

// Running reports whether the source is actively synthesizing.
func (ss *SynthSource) Running() bool {
	ss.sourceStateLock.Lock()
	defer ss.sourceStateLock.Unlock()
	return ss.sourceState == Active
}

func (ss *SynthSource) setStateStarting() error {
	ss.sourceStateLock.Lock()
	defer ss.sourceStateLock.Unlock()
	if ss.sourceState != Inactive {
		return fmt.Errorf("cannot Start a SynthSource in state %d", ss.sourceState)
	}
	ss.sourceState = Starting
	return nil
}

func (ss *SynthSource) setStateActive() {
	ss.sourceStateLock.Lock()
	ss.sourceState = Active
	ss.runDone.Add(2) // one per long-running loop
	ss.sourceStateLock.Unlock()
}

func (ss *SynthSource) setStateInactive() {
	ss.sourceStateLock.Lock()
	ss.sourceState = Inactive
	ss.sourceStateLock.Unlock()
}

// Blocks returns the channel on which synthesized blocks are delivered.
func (ss *SynthSource) Blocks() <-chan *DutyBlock {
	return ss.nextBlock
}

// Start runs a configured SynthSource: it verifies readiness, starts the
// run, then launches the synthesis loop and the control loop. Steps mirror
// the source lifecycle used throughout this codebase: state transition,
// Sample, StartRun, then the long-running goroutines.
func Start(ss *SynthSource) error {
	if err := ss.setStateStarting(); err != nil {
		return err
	}
	if err := ss.Sample(); err != nil {
		ss.setStateInactive()
		return err
	}
	if err := ss.StartRun(); err != nil {
		ss.setStateInactive()
		return err
	}
	ss.setStateActive()
	go ss.coreLoop()
	go ss.controlLoop()
	return nil
}

// StartRun prepares the run state: abort channel, output channel, run ID.
func (ss *SynthSource) StartRun() error {
	ss.runMutex.Lock()
	ss.abort = make(chan struct{})
	ss.nextBlock = make(chan *DutyBlock, 16)
	ss.runID = ulid.Make().String()
	ss.lastread = time.Now()
	ss.sampleCount.Store(0)
	ss.blinkTicks = 0
	ss.statTicks = 0
	runID := ss.runID
	ss.runMutex.Unlock()

	UpdateLogger.Printf("SynthSource run %s starting: %d frames/block every %v\n",
		runID, ss.framesPerBlock, ss.timeperbuf)
	if viper.GetBool("Verbose") {
		UpdateLogger.Println(spew.Sdump(ss.statusSnapshot()))
	}
	return nil
}

// Stop ends the run and waits for the loops to drain.
func (ss *SynthSource) Stop() error {
	ss.sourceStateLock.Lock()
	if ss.sourceState != Active {
		ss.sourceStateLock.Unlock()
		return fmt.Errorf("cannot Stop a SynthSource that is not Active")
	}
	ss.sourceState = Stopping
	ss.sourceStateLock.Unlock()

	close(ss.abort)
	ss.runDone.Wait()
	ss.setStateInactive()
	return nil
}

// coreLoop produces blocks until the run is aborted.
func (ss *SynthSource) coreLoop() {
	defer ss.runDone.Done()
	for {
		if err := ss.blockingRead(); err == io.EOF {
			return
		} else if err != nil {
			ProblemLogger.Printf("SynthSource.blockingRead: %v\n", err)
			return
		}
	}
}

// blockingRead waits until the next block is due, synthesizes it, and
// delivers it. The wait is the stand-in for the sample-timer interrupt
// cadence; when the process falls behind, blocks are produced late rather
// than reported as errors.
func (ss *SynthSource) blockingRead() error {
	nextread := ss.lastread.Add(ss.timeperbuf)
	waittime := time.Until(nextread)
	if waittime > 0 {
		select {
		case <-ss.abort:
			return io.EOF
		case <-time.After(waittime):
		}
	}
	ss.lastread = time.Now()

	block := ss.synthesizeBlock()
	select {
	case <-ss.abort:
		return io.EOF
	case ss.nextBlock <- block:
	}
	return nil
}

// synthesizeBlock runs the per-sample path once per frame: advance each
// NCO, look up the quantized cosine, scale by the ramped amplitude, mix.
// Only atomic word reads touch shared state.
func (ss *SynthSource) synthesizeBlock() *DutyBlock {
	block := &DutyBlock{
		Frames:          make([]DutyFrame, ss.framesPerBlock),
		FirstFrameIndex: ss.sampleCount.Load(),
		Time:            time.Now(),
	}
	c0, c1 := ss.chans[0], ss.chans[1]
	for i := range block.Frames {
		n0 := scaleLevel(c0.actualAmplitude.Load(), ss.cosine.Lookup(c0.advance()))
		n1 := scaleLevel(c1.actualAmplitude.Load(), ss.cosine.Lookup(c1.advance()))
		block.Frames[i] = mixFrame(n0, n1)
	}
	ss.sampleCount.Add(int64(len(block.Frames)))
	return block
}

// controlLoop is the slow, best-effort context: command adoption, ramping,
// blinking, periodic status broadcast.
func (ss *SynthSource) controlLoop() {
	defer ss.runDone.Done()
	ticker := time.NewTicker(ControlTickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ss.abort:
			return
		case <-ticker.C:
			ss.controlTick()
		}
	}
}

// controlTick performs one pass of the control-rate work. Kept separate
// from the ticker loop so ramp behavior can be stepped deterministically.
func (ss *SynthSource) controlTick() {
	if cmd, ok := ss.pending.take(); ok {
		ss.adopt(cmd)
	}
	ss.chans[0].rampTick()
	ss.chans[1].rampTick()

	ss.blinkTicks++
	if ss.blinkTicks >= blinkHalfPeriodTicks {
		ss.blinkTicks = 0
		ss.blinkOn = !ss.blinkOn
		ss.blinker.Toggle(ss.blinkOn)
		ss.sendUpdate("BLINK", ss.blinkOn)
	}

	ss.statTicks++
	if ss.statTicks >= statusPeriodTicks {
		ss.statTicks = 0
		ss.sendUpdate("STATUS", ss.statusSnapshot())
	}
}

// adopt applies a target command to both channels. Both targets are set
// before the ramper next runs (same goroutine), so adoption is atomic from
// the core's perspective. The diagnostic echo is asynchronous: a TARGETS
// broadcast plus an update-log line.
func (ss *SynthSource) adopt(cmd TargetCommand) {
	ss.chans[0].SetTargets(cmd.Freq0, cmd.Volts0)
	ss.chans[1].SetTargets(cmd.Freq1, cmd.Volts1)
	UpdateLogger.Printf("adopted targets: ch0 %.3f Hz %.4f V, ch1 %.3f Hz %.4f V (%d/4 fields parsed)\n",
		cmd.Freq0, cmd.Volts0, cmd.Freq1, cmd.Volts1, cmd.ParsedFields)
	ss.sendUpdate("TARGETS", cmd)
	if hook := ss.adoptHook(); hook != nil {
		hook(cmd)
	}
}

// setAdoptHook installs (or clears) the bookkeeping hook called with each
// adopted command.
func (ss *SynthSource) setAdoptHook(f func(TargetCommand)) {
	ss.runMutex.Lock()
	ss.onAdopt = f
	ss.runMutex.Unlock()
}

func (ss *SynthSource) adoptHook() func(TargetCommand) {
	ss.runMutex.Lock()
	defer ss.runMutex.Unlock()
	return ss.onAdopt
}

// sendUpdate forwards a client update without ever blocking the control
// loop. Updates are dropped if no updater is draining the channel.
func (ss *SynthSource) sendUpdate(tag string, msg interface{}) {
	if ss.updates == nil {
		return
	}
	select {
	case ss.updates <- ClientUpdate{tag, msg}:
	default:
	}
}

// SynthStatus is the broadcastable snapshot of the source.
type SynthStatus struct {
	Running        bool
	RunID          string
	SampleRateHz   float64
	NyquistHz      float64
	FreqResolution float64
	FramesPerBlock int
	SamplesOut     int64
	TargetFreq0    float64
	ActualFreq0    float64
	TargetFreq1    float64
	ActualFreq1    float64
	TargetAmp0     int32
	ActualAmp0     int32
	TargetAmp1     int32
	ActualAmp1     int32
}

func (ss *SynthSource) statusSnapshot() SynthStatus {
	return SynthStatus{
		Running:        ss.Running(),
		RunID:          ss.RunID(),
		SampleRateHz:   SampleRate,
		NyquistHz:      NyquistHz,
		FreqResolution: FreqResolution,
		FramesPerBlock: ss.framesPerBlock,
		SamplesOut:     ss.sampleCount.Load(),
		TargetFreq0:    ss.chans[0].TargetFreq(),
		ActualFreq0:    ss.chans[0].ActualFreq(),
		TargetFreq1:    ss.chans[1].TargetFreq(),
		ActualFreq1:    ss.chans[1].ActualFreq(),
		TargetAmp0:     ss.chans[0].targetAmplitude.Load(),
		ActualAmp0:     ss.chans[0].actualAmplitude.Load(),
		TargetAmp1:     ss.chans[1].targetAmplitude.Load(),
		ActualAmp1:     ss.chans[1].actualAmplitude.Load(),
	}
}
