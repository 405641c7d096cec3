package main

import (
	"fmt"

	"github.com/fgeck/sbat-slotwatch/internal/models"
	"github.com/spf13/cobra"
)

var centersCmd = &cobra.Command{
	Use:   "centers",
	Short: "List the known exam centers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range models.KnownCenters {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
	},
}
