// The main package for the timerboard executable.
package main

import (
	"github.com/JakeFAU/timerboard/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
