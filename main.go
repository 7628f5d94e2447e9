package main

import (
	"os"

	"vehicle-tracker/cli"
)

func main() {
	os.Exit(cli.Execute())
}
