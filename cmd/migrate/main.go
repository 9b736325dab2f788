package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"bookstore/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
)

// Applies the versioned migrations in migrations/ against the configured
// database using the atlas CLI.
func main() {
	dir := flag.String("dir", "migrations", "migration directory")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := atlasexec.NewClient(".", "atlas")
	if err != nil {
		slog.Error("atlasクライアントの作成に失敗しました", "error", err)
		os.Exit(1)
	}

	res, err := client.MigrateApply(ctx, &atlasexec.MigrateApplyParams{
		URL:    cfg.DB.BuildDSN(),
		DirURL: "file://" + *dir,
	})
	if err != nil {
		slog.Error("マイグレーションの適用に失敗しました", "error", err)
		os.Exit(1)
	}

	slog.Info("マイグレーションが完了しました",
		"applied", len(res.Applied),
		"current", res.Current,
		"target", res.Target)
}
