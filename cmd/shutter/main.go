package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/shutter/internal/app"
	"github.com/five82/shutter/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutter: %v\n", err)
		return 1
	}
	return 0
}

type cameraFlags struct {
	configPath string
	prefsPath  string
	front      bool
	rear       bool
}

func (f *cameraFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "override config path (optional)")
	flags.StringVar(&f.prefsPath, "prefs", "", "override preferences path (optional)")
	flags.BoolVar(&f.front, "front", false, "start with the front camera")
	flags.BoolVar(&f.rear, "rear", false, "start with the rear camera")
	cmd.MarkFlagsMutuallyExclusive("front", "rear")
}

func (f *cameraFlags) options() app.Options {
	opts := app.Options{ConfigPath: f.configPath, PrefsPath: f.prefsPath}
	switch {
	case f.front:
		front := true
		opts.Front = &front
	case f.rear:
		front := false
		opts.Front = &front
	}
	return opts
}

func newRootCmd() *cobra.Command {
	var flags cameraFlags
	cmd := &cobra.Command{
		Use:           "shutter",
		Short:         "Terminal camera: preview, capture and download snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}
	flags.register(cmd)
	cmd.AddCommand(newSnapCmd(), newVersionCmd())
	return cmd
}

func newSnapCmd() *cobra.Command {
	var (
		flags    cameraFlags
		name     string
		fileType string
		dir      string
	)
	cmd := &cobra.Command{
		Use:   "snap",
		Short: "Capture a single image without the TUI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.Snap(cmd.Context(), app.SnapOptions{
				Options: flags.options(),
				Name:    name,
				Type:    fileType,
				Dir:     dir,
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return errors.New("interrupted")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) from %s\n", res.Path, res.Size, res.Device)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&name, "name", "n", "", "file name without extension")
	cmd.Flags().StringVarP(&fileType, "type", "t", "", "file type: png or jpg")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "download directory (defaults to download_dir)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shutter version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shutter %s\n", version.GetInfo())
		},
	}
}
