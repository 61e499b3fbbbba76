// Command pressworks solves button-machine puzzles read from the one-line
// notation.
//
//	pressworks solve machines.txt
//	pressworks solve --mode counters --policy first-feasible < machines.txt
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
