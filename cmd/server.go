package cmd

import (
	"Soundbay/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 Soundbay 服务器",
	Long:  `启动 HTTP 服务器，提供 REST API、/ws 推送通道和 /uploads 文件服务`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(loadConfig())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
