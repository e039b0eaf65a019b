package main

import "github.com/mouse-blink/pbox/cmd"

func main() {
	cmd.Execute()
}
