package main

import (
	"github.com/entropy-labs/rngpool/cmd"
)

func main() {
	cmd.Execute()
}
