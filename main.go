package main

import (
	"reelcomp/cmd"
)

func main() {
	cmd.Execute()
}
