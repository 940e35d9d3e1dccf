package main

import (
	"os"

	"github.com/spf13/cobra"

	chatcmder "github.com/quiplabs/quip/cmd/quip/chat"
	sweepcmder "github.com/quiplabs/quip/cmd/quip/sweep"
)

const rootLongDesc string = `quip is a terminal client for the quip voice-chat assistant.

Ask questions in a chat session, hear the answers synthesized to
speech, or have a talking avatar deliver them.`

func main() {
	root := &cobra.Command{
		Use:           "quip",
		Short:         "Terminal client for the quip assistant",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(chatcmder.NewChatCmd())
	root.AddCommand(sweepcmder.NewSweepCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
