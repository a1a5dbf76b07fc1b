package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"reelcomp/core/loader"

	"github.com/spf13/cobra"
)

var frameTimeout time.Duration

var frameCmd = &cobra.Command{
	Use:   "frame <frame>",
	Short: "输出某一帧的合成指令",
	Long:  `加载当前项目的时间线一次，以 JSON 输出指定帧上所有活动元素。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid frame %q: %w", args[0], err)
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
		defer cancel()

		app.Loader.Start(ctx)
		defer app.Loader.Stop()
		if err := app.Loader.WaitReady(ctx); err != nil {
			return fmt.Errorf("timeline not ready: %w", err)
		}

		snap := app.Loader.Current()
		if snap == nil {
			return fmt.Errorf("timeline not loaded")
		}
		if snap.State == loader.StateErrorFallback {
			fmt.Fprintf(os.Stderr, "warning: using %s timeline: %s\n", snap.Source, snap.Err)
		}

		// 订阅回调在 Ready 之前执行，音频频谱此时已加载
		out := struct {
			Revision       string      `json:"revision"`
			Frame          int         `json:"frame"`
			DurationFrames int         `json:"durationFrames"`
			Instructions   interface{} `json:"instructions"`
		}{snap.Revision, frame, snap.Composition.DurationFrames, snap.Composition.FrameAt(frame)}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	frameCmd.Flags().DurationVar(&frameTimeout, "timeout", 15*time.Second, "等待时间线加载的超时")
	rootCmd.AddCommand(frameCmd)
}
