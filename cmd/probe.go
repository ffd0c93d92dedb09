package cmd

import (
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-hlsbundle"
)

func init() {
	command := &cobra.Command{
		Use:   "probe <file>",
		Short: "list audio and subtitle tracks of a media file",
		Long:  `list audio and subtitle tracks of a media file as they would be named in the hls bundle`,
		Args:  cobra.ExactArgs(1),
		Run:   hlsbundle.Service.ProbeCommand,
	}

	rootCmd.AddCommand(command)
}
