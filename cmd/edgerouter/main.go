package main

import "edgerouter/internal/cli"

func main() {
	cli.Execute()
}
