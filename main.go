package main

import "procrunner/cmd"

func main() {
	cmd.Execute()
}
