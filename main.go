package main

import (
	"os"

	"github.com/smazurov/sunxidisp/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
