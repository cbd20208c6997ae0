package main

import "github.com/anncsu/anncsu-update/cmd"

func main() {
	cmd.Execute()
}
