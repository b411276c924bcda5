package main

import "github.com/matthieukhl/storepulse/internal/cmd"

func main() {
	cmd.Execute()
}
