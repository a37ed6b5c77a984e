package main

import "github.com/oshokin/walle-eyes/cmd/eyes-blinker/cmd"

func main() {
	cmd.Execute()
}
