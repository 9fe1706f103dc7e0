package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	handler "community-meetings-backend/api"
	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/storage"
)

// 只读检查：输出孤儿聚会、孤儿附件、缺失与多余的上传文件；发现问题时退出码为 1
func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 检查工具不写入默认数据
	dbCfg := handler.DatabaseConfig(cfg)
	dbCfg.SeedDefaults = false

	fmt.Fprintf(os.Stderr, "🔗 Opening %s database\n", cfg.DBDriver)
	db, err := database.NewDatabase(ctx, dbCfg, zap.NewNop())
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	files, err := storage.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes, nil)
	if err != nil {
		log.Fatalf("❌ Failed to open upload dir: %v", err)
	}
	names, err := files.List()
	if err != nil {
		log.Fatalf("❌ Failed to list uploads: %v", err)
	}

	report, err := db.CheckIntegrity(ctx, names)
	if err != nil {
		log.Fatalf("❌ Integrity check failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("❌ Failed to write report: %v", err)
	}

	if !report.Clean() {
		fmt.Fprintln(os.Stderr, "⚠️  Inconsistencies found")
		db.Close()
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "✅ No inconsistencies found")
}
