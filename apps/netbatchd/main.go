package main

import "github.com/netbatch/netbatch/apps/netbatchd/cmd"

func main() {
	cmd.Execute()
}
