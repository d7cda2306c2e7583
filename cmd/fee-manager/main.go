package main

import (
	"github.com/ethvouch/fee-manager/cli"
)

func main() {
	cli.Main()
}
