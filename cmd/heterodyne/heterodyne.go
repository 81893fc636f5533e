package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/spf13/viper"
	"github.com/usnistgov/heterodyne"
	"github.com/usnistgov/heterodyne/internal/rundb"
	"gopkg.in/natefinch/lumberjack.v2"
)

var githash = "githash not computed"
var gitdate = "git date not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	// Create directory <path>, if needed
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		err2 := os.MkdirAll(dir, 0775)
		if err2 != nil {
			return "", err2
		}
	}

	// Create an empty file path/filename, if it doesn't exist.
	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix. Sets some defaults.
func setupViper() error {
	viper.SetDefault("Verbose", false)
	viper.SetDefault("synth", map[string]interface{}{
		"framesperblock": 256,
		"freq0":          440.0,
		"amp0":           0.0,
		"freq1":          440.0,
		"amp1":           0.0,
	})

	HOME, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Error finding User Home Dir: %s\n", err)
	}
	dotHeterodyne := filepath.Join(HOME, ".heterodyne")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotHeterodyne, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/heterodyne"))
	viper.AddConfigPath(dotHeterodyne)
	viper.AddConfigPath(".")
	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		msg := fmt.Sprintf("Could not open log file '%s'", pfname)
		panic(msg)
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	heterodyne.Build.Date = buildDate
	heterodyne.Build.Githash = githash
	heterodyne.Build.Gitdate = gitdate
	heterodyne.Build.Summary = fmt.Sprintf("HETERODYNE version %s (git commit %s of %s)",
		heterodyne.Build.Version, githash, gitdate)
	if host, err := os.Hostname(); err == nil {
		heterodyne.Build.Host = host
	} else {
		heterodyne.Build.Host = "host not detected"
	}

	printVersion := flag.Bool("version", false, "print version and quit")
	pingDB := flag.Bool("pingdb", false, "check the run-bookkeeping database connection and quit")
	cpuprofile := flag.String("cpuprofile", "", "write CPU profile to given file")
	memprofile := flag.String("memprofile", "", "write memory profile to given file")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is HETERODYNE version %s\n", heterodyne.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		fmt.Printf("Sample rate %d Hz, frequency resolution %.4f Hz, Nyquist %d Hz\n",
			heterodyne.SampleRate, heterodyne.FreqResolution, heterodyne.NyquistHz)
		os.Exit(0)
	}

	if *pingDB {
		if err := rundb.PingServer(); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}

	banner := fmt.Sprintf("\nThis is HETERODYNE version %s (git commit %s)\n",
		heterodyne.Build.Version, githash)
	fmt.Print(banner)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Start logging problems and updates to 2 log files.
	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".heterodyne", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	heterodyne.ProblemLogger = startLogger(problemname)
	heterodyne.UpdateLogger = startLogger(logname)
	fmt.Printf("Logging problems       to %s\n", problemname)
	fmt.Printf("Logging client updates to %s\n\n", logname)
	heterodyne.UpdateLogger.Printf("\n\n\n\n%s", banner)

	// Find config file, creating it if needed, and read it.
	if err := setupViper(); err != nil {
		panic(err)
	}

	heterodyne.CheckRealtimeEnvironment()

	abort := make(chan struct{})
	messageChan := make(chan heterodyne.ClientUpdate, 32)
	go heterodyne.RunClientUpdater(messageChan, heterodyne.Ports.Status, abort)
	heterodyne.RunRPCServer(messageChan, heterodyne.Ports.RPC)
	close(abort)
	writeMemoryProfile(memprofile)
}

// writeMemoryProfile writes the memory use profile to the indicated file.
// If `memprofile` points to an empty string, do not write.
func writeMemoryProfile(memprofile *string) {
	if *memprofile == "" {
		return
	}

	f, err := os.Create(*memprofile)
	if err != nil {
		log.Fatal("could not create memory profile: ", err)
	}
	defer f.Close()
	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Fatal("could not write memory profile: ", err)
	}
}
