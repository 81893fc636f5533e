package rundb

import "time"

// The composite types used for messages to the ClickHouse database.

var nowFunc = time.Now

// RunMessage is the information required to make an entry in the synthruns table.
type RunMessage struct {
	ID             string
	Hostname       string
	Githash        string
	Version        string
	GoVersion      string
	SampleRateHz   float64
	FramesPerBlock int
	Start          time.Time
	End            time.Time
}

// CommandMessage is the information required to make an entry in the
// adoptedcommands table.
type CommandMessage struct {
	RunID        string
	Raw          string
	Freq0        float64
	Volts0       float64
	Freq1        float64
	Volts1       float64
	ParsedFields int
	When         time.Time
}
