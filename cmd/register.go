package cmd

import (
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-hlsbundle"
)

func init() {
	command := &cobra.Command{
		Use:   "register <media-id> <source>",
		Short: "register a media with its encoded video renditions",
		Long:  `register a media source file with its already encoded video renditions, paths may be relative to the media root`,
		Args:  cobra.ExactArgs(2),
		Run:   hlsbundle.Service.RegisterCommand,
	}

	command.Flags().String("title", "", "media title")
	command.Flags().String("codec", "h264", "video codec of the renditions")
	command.Flags().StringArray("rendition", nil, "encoded rendition as path@height[:status], can be repeated")

	rootCmd.AddCommand(command)
}
