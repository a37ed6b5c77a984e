package main

import "github.com/oshokin/walle-eyes/cmd/eyes-server/cmd"

func main() {
	cmd.Execute()
}
