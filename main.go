package main

import "housing/cli"

func main() {
	cli.Execute()
}
