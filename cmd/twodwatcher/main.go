package main

import "set-index-snapshots/internal/cli"

func main() {
	cli.Execute()
}
