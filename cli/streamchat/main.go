package main

import (
	"fmt"
	"os"

	streamchatcmder "github.com/papercomputeco/streamchat/cmd/streamchat"
)

func main() {
	cmd := streamchatcmder.NewStreamchatCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
