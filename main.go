package main

import (
	"github.com/verityqa/verity/cmd"
)

func main() {
	cmd.Execute()
}
