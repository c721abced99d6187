package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matheus3301/imsgx/internal/archive"
	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/pipeline"
	"github.com/spf13/cobra"
)

func decodeCmd() *cobra.Command {
	var (
		hexInput    bool
		placeholder string
	)
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode one attributedBody blob and print its text",
		Long: `Reads an attributedBody value from a file (or stdin when no file or "-" is
given) and prints the text it carries. Use --hex for values copied out of
sqlite3 as hex, with or without the X'...' wrapper.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := config.Overrides{}
			if cmd.Flags().Changed("placeholder") {
				o.Placeholder = &placeholder
			}
			cfg, err := resolveConfig(o)
			if err != nil {
				return err
			}

			blob, err := readBlob(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if hexInput {
				if blob, err = decodeHex(blob); err != nil {
					return err
				}
			}

			text, err := pipeline.NewDecoder(cfg).Decode(blob)
			if jsonOut {
				out := map[string]any{"format": archive.Detect(blob).String(), "text": text}
				if err != nil {
					out["error"] = err.Error()
				}
				return outputJSON(out)
			}
			if err != nil {
				return fmt.Errorf("decode %s archive: %w", archive.Detect(blob), err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().BoolVar(&hexInput, "hex", false, "input is hex encoded")
	cmd.Flags().StringVar(&placeholder, "placeholder", "", "text to put where an inline attachment was")
	return cmd
}

func readBlob(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func decodeHex(in []byte) ([]byte, error) {
	s := strings.Join(strings.Fields(string(in)), "")
	if len(s) > 3 && (s[0] == 'X' || s[0] == 'x') && s[1] == '\'' {
		s = strings.TrimSuffix(s[2:], "'")
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return out, nil
}
