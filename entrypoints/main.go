package main

import (
	"github.com/Laisky/files-manager/cmd"
)

func main() {
	cmd.Execute()
}
