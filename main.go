package main

import (
	"fmt"
	"os"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
