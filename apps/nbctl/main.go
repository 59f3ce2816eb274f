package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/netbatch/netbatch/apps/nbctl/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "nbctl crashed: %v\n", r)
			if os.Getenv("NETBATCH_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
