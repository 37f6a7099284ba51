package main

import "github.com/oshokin/beacon-engine/cmd/beacond/cmd"

func main() {
	cmd.Execute()
}
