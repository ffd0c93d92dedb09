package cmd

import (
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-hlsbundle"
)

func init() {
	command := &cobra.Command{
		Use:   "run <media-id>",
		Short: "create hls bundle of a media",
		Long:  `create hls bundle of a registered media in foreground`,
		Args:  cobra.ExactArgs(1),
		Run:   hlsbundle.Service.RunCommand,
	}

	rootCmd.AddCommand(command)
}
