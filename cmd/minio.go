package cmd

import (
	"fmt"

	"Soundbay/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶检查",
	Long:  `连接MinIO服务器，检查上传使用的存储桶，不存在时创建。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if _, err := storage.NewMinioStore(cfg); err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}
		fmt.Println("MinIO存储桶就绪！")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
