package main

import "hitrelay/cmd"

func main() {
	cmd.Execute()
}
