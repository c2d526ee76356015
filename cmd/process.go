package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <image-path>",
	Short: "Run one repository image through the scan pipeline",
	Long:  "Fetches the given card image from the configured repository and runs extraction, reconciliation, and notification, bypassing the webhook stages.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		resp := env.Pipeline.ProcessImage(ctx, args[0])

		out, _ := json.MarshalIndent(resp.Body, "", "  ")
		fmt.Println(string(out))

		if resp.Status >= 400 {
			return eris.Errorf("processing failed with status %d", resp.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
