package main

import "github.com/oshokin/beacon-engine/cmd/beacon-tail/cmd"

func main() {
	cmd.Execute()
}
