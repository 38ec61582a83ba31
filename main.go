package main

import "github.com/deploymenttheory/go-ddcheck/cmd"

func main() {
	cmd.Execute()
}
