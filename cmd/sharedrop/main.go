package main

import "github.com/jmcleod/sharedrop/cmd/sharedrop/cmd"

func main() {
	cmd.Execute()
}
