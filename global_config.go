package heterodyne

import (
	"log"
	"os"
	"time"
)

// Portnumbers holds all TCP port numbers used by Heterodyne.
type Portnumbers struct {
	RPC     int // JSON-RPC control server
	Status  int // ZMQ PUB socket for status broadcasts
	Duty    int // ZMQ PUB socket for the duty-cycle frame stream
	Command int // line-oriented target command listener
}

// Ports globally holds all TCP port numbers used by Heterodyne.
var Ports Portnumbers

func setPortnumbers(base int) {
	Ports.RPC = base
	Ports.Status = base + 1
	Ports.Duty = base + 2
	Ports.Command = base + 3
}

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Gitdate string
	Date    string
	Summary string
	Host    string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.1.2",
	Githash: "no git hash computed",
	Date:    "no build date computed",
}

// StartTime is a global holding the time init() was run
var StartTime time.Time

// ProblemLogger will log warning messages to a file
var ProblemLogger *log.Logger

// UpdateLogger will log client updates to a file
var UpdateLogger *log.Logger

func init() {
	setPortnumbers(5600)
	StartTime = time.Now()

	// Heterodyne main program will override these, but at least initialize with sensible values
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
	UpdateLogger = log.New(os.Stderr, "", log.LstdFlags)
}
