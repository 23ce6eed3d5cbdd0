package main

import "Soundbay/cmd"

func main() {
	cmd.Execute()
}
