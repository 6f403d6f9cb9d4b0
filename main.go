// Package main is the entry point for the standings CLI, which computes squad
// battle-royale tournament standings from a roster and per-match result sheets.
package main

import "github.com/pable/squad-standings/cmd"

func main() {
	cmd.Execute()
}
