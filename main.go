package main

import "sandboxd/cmd"

func main() {
	cmd.Execute()
}
