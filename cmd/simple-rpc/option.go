package main

import (
	"simple-rpc/config"

	"github.com/charmbracelet/log"
)

// Options is the root command. The struct tags are interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Config string `short:"f" long:"config" description:"config YAML path"`

	Serve ServeCmd `command:"serve" description:"Serve the Echo and Greeting services"`
	Echo  EchoCmd  `command:"echo" description:"Call Echo"`
	Hello HelloCmd `command:"hello" description:"Call Greeting"`
}

var options Options

// loadConfig reads the -f file, or the defaults, and applies the log level.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if options.Config != "" {
		var err error
		if cfg, err = config.Load(options.Config); err != nil {
			return cfg, err
		}
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}
