package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"reelcomp/core/loader"
	"reelcomp/core/timeline"
	"reelcomp/model"

	"github.com/spf13/cobra"
)

var inspectScript bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "检查时间线或场景脚本文件的布局",
	Long:  `解析本地 OTIO 时间线（或 --script 指定的场景脚本），打印每条轨道的分类、时长与被丢弃的元素。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var tl *model.Timeline
		if inspectScript || filepath.Base(args[0]) == loader.DefaultScriptFile {
			script, err := model.DecodeSceneScript(data)
			if err != nil {
				return err
			}
			tl = loader.ConvertScript(script, loader.ConvertOptions{FPS: cfg.FPS})
		} else if tl, err = model.DecodeTimeline(data); err != nil {
			return err
		}

		comp := timeline.Compose(tl, timeline.Options{
			FPS:                    cfg.FPS,
			DefaultDurationSeconds: cfg.DefaultDurationSeconds,
			Resolver:               timeline.Resolver{ServedRoot: cfg.ServedRoot},
		})

		fmt.Printf("timeline: %s\n", tl.Name)
		fmt.Printf("fps: %g  duration: %d frames (%.2fs)\n\n", comp.FPS, comp.DurationFrames, float64(comp.DurationFrames)/comp.FPS)

		rows := make([][]string, 0, len(comp.Layouts))
		for i, l := range comp.Layouts {
			rows = append(rows, []string{
				strconv.Itoa(i), l.Name, string(l.Kind), string(l.Role),
				strconv.Itoa(len(l.Segments)), strconv.Itoa(len(l.Transitions)), strconv.Itoa(l.Extent),
			})
		}
		fmt.Println(renderTable(os.Stdout,
			[]string{"Layer", "Track", "Kind", "Role", "Segments", "Transitions", "Extent"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}))

		if len(comp.Dropped) > 0 {
			fmt.Println("\ndropped:")
			for _, d := range comp.Dropped {
				fmt.Printf("  %s[%d]: %s\n", d.Track, d.Index, d.Reason)
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectScript, "script", false, "按场景脚本解析")
	rootCmd.AddCommand(inspectCmd)
}
