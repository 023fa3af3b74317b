package main

import "omnidesk/cmd/cli"

func main() {
	cli.Execute()
}
