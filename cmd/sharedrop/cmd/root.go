package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sharedrop",
	Short: "Sharedrop is a two-factor authenticated shared file store",
	Long: `A small file-sharing service guarded by two-factor login: password first,
then a one-time code delivered to the user's phone. Admins can upload,
rename and delete files; everyone can list and download them.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
