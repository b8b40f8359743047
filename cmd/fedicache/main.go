package main

import (
	"fedicache/internal/cmd"
)

func main() {
	cmd.Run()
}
