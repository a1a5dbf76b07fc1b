package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"reelcomp/db"
	"reelcomp/model"
	"reelcomp/repository"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "管理数据库中的项目索引",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出数据库中的项目",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := openProjectRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		projects, err := repo.List(ctx)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(projects))
		for _, p := range projects {
			rows = append(rows, []string{
				strconv.Itoa(p.Position), p.ID, p.Path,
				strconv.FormatBool(p.HasNativeTimeline), strconv.FormatBool(p.HasSceneScript),
			})
		}
		fmt.Println(renderTable(os.Stdout,
			[]string{"Pos", "ID", "Path", "Timeline", "Script"},
			rows,
			[]columnAlignment{alignRight}))
		return nil
	},
}

var projectsImportCmd = &cobra.Command{
	Use:   "import <index.json>",
	Short: "把 JSON 项目索引导入数据库",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		projects, err := repository.DecodeProjectIndex(data)
		if err != nil {
			return err
		}

		repo, closeDB, err := openProjectRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for i := range projects {
			if err := repo.Upsert(ctx, &projects[i]); err != nil {
				return fmt.Errorf("import %s: %w", projects[i].ID, err)
			}
		}
		fmt.Printf("已导入 %d 个项目\n", len(projects))
		return nil
	},
}

func openProjectRepository() (repository.ProjectRepository, func(), error) {
	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrateModels(&model.Project{}); err != nil {
		db.CloseGormDB()
		return nil, nil, err
	}
	return repository.NewGormProjectRepository(db.GormDB), func() { db.CloseGormDB() }, nil
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsImportCmd)
	rootCmd.AddCommand(projectsCmd)
}
