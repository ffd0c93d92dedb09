package cmd

import (
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-hlsbundle"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve hls bundle api",
		Long:  `serve http api that creates hls bundles on request and serves them`,
		Run:   hlsbundle.Service.ServeCommand,
	}

	initConfigs(command, hlsbundle.Service.ServerConfig)

	rootCmd.AddCommand(command)
}
