package main

import "kitsunedns/cmd"

func main() {
	cmd.Execute()
}
