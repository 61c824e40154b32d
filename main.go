package main

import (
	"adsplice/app/cmd"
	"adsplice/app/util"
	"adsplice/app/util/mylog"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.szostok.io/version/extension"
)

func main() {
	mylog.Preinit()

	fmt.Fprintln(os.Stderr, util.Banner)

	rootCmd := &cobra.Command{Use: "adsplice"}
	rootCmd.AddCommand(cmd.Engine)
	rootCmd.AddCommand(extension.NewVersionCobraCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
		return
	}
}
