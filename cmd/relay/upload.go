package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/sudokupad"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <short-id> [puzzle.json]",
	Short: "Upload a puzzle (id, regions and cells) to the host, or a blank one if no file is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	puzzle := sudokupad.BlankPuzzle()
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read puzzle: %w", err)
		}
		puzzle = sudokupad.Puzzle{}
		if err := json.Unmarshal(data, &puzzle); err != nil {
			return fmt.Errorf("parse puzzle %s: %w", args[1], err)
		}
	}

	pad := sudokupad.NewClient(cfg.BaseURL, nil, logger)
	if !pad.Upload(cmd.Context(), puzzle, args[0]) {
		return fmt.Errorf("upload of %s failed", args[0])
	}
	user := cfg.Identity()
	logger.Info("uploaded", zap.String("view_url", pad.ViewURL(args[0], user)))
	return nil
}
