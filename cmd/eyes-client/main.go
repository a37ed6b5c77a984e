package main

import "github.com/oshokin/walle-eyes/cmd/eyes-client/cmd"

func main() {
	cmd.Execute()
}
