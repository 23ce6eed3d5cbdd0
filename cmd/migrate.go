package cmd

import (
	"context"
	"fmt"
	"time"

	"Soundbay/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "同步数据库表结构",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Connect(loadConfig())
		if err != nil {
			return err
		}
		defer db.Close(gdb)
		if err := db.AutoMigrate(gdb); err != nil {
			return err
		}
		fmt.Println("数据库迁移完成")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "写入演示数据",
	Long:  `创建演示管理员、卖家、买家账号，默认曲风和三首已上架曲目。可以重复执行。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Connect(loadConfig())
		if err != nil {
			return err
		}
		defer db.Close(gdb)
		if err := db.AutoMigrate(gdb); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := db.Seed(ctx, gdb); err != nil {
			return err
		}
		fmt.Println("演示数据已写入")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
