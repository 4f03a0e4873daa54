// simple-rpc serves and calls the Echo and Greeting demo services over TCP.
//
//	simple-rpc serve -f simple-rpc.yaml
//	simple-rpc echo --addr 127.0.0.1:9000 hello
//	simple-rpc hello --goodbye bob
package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	parser := flags.NewParser(&options, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		// go-flags already printed the error
		os.Exit(1)
	}
}
