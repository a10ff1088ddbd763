package main

import "github.com/cedoor/sparse-merkle-tree/cmd/cli"

func main() {
	cli.Execute()
}
