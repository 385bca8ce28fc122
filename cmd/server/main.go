package main

import "github.com/crave-grocer/api/internal/cli"

func main() {
	cli.Execute()
}
