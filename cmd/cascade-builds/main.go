package main

import "cascade-builds/internal/cli"

func main() {
	cli.Execute()
}
