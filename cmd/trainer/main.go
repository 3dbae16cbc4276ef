package main

import "legalsum/internal/cli"

func main() {
	cli.Execute()
}
