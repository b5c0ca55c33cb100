package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewcsillag/notecove-sub008/notelog"
)

var dumpPackedCmd = &cobra.Command{
	Use:   "dump-packed <file.yjson>",
	Short: "Decode a packed update file and print its metadata and content length",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpPacked,
}

func init() {
	rootCmd.AddCommand(dumpPackedCmd)
}

func runDumpPacked(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var packed notelog.PackedFile
	if err := json.Unmarshal(data, &packed); err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	fmt.Printf("instance:  %s\n", packed.Instance)
	fmt.Printf("sequence:  %d-%d\n", packed.StartSeq(), packed.EndSeq())
	fmt.Printf("timestamp: %s\n", packed.Timestamp)
	fmt.Printf("updates:   %d\n", len(packed.Updates))

	for i, encoded := range packed.Updates {
		decoded, err := notelog.DecodeUpdate(encoded)
		if err != nil {
			fmt.Printf("  [%d] <undecodable: %v>\n", i, err)
			continue
		}
		fmt.Printf("  [%d] %d bytes\n", i, len(decoded))
	}
	return nil
}
