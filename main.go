package main

import "github.com/wfunc/cardroom/cmd"

func main() {
	cmd.Execute()
}
