// Command beats 提供历史最值线段树的 HTTP 服务与差分校验工具。
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version 在构建时通过 -ldflags "-X main.version=..." 注入。
var version = "dev"

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "beats",
		Short:         "Range add / historic maximum segment tree service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a toml config file")
	rootCmd.AddCommand(serveCmd, verifyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
