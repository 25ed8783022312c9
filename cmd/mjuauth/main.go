package main

import "github.com/jmcleod/mjuauth/cmd/mjuauth/cmd"

func main() {
	cmd.Execute()
}
