package main

import (
	"flag"
	"fmt"
	"os"
)

// Config defines program configuration.
type Config struct {
	Input string // Input source file to assemble and run.
	Port  int    // Port the teletype is connected to.
	Hz    int    // Clock rate in steps per second. Zero runs unthrottled.
	Trace bool   // Print each executed statement to stderr.
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	var c Config

	flag.Usage = func() {
		fmt.Printf("%s [options] <input source file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.IntVar(&c.Port, "port", c.Port, "Port the teletype is connected to.")
	flag.IntVar(&c.Hz, "hz", c.Hz, "Clock rate in steps per second. Zero runs unthrottled.")
	flag.BoolVar(&c.Trace, "trace", c.Trace, "Print each executed statement to stderr.")
	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	c.Input = flag.Arg(0)
	return &c
}
