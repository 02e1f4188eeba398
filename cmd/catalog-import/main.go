// Command catalog-import seeds the DynamoDB catalog table from a CSV file in
// the same format the file source reads.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"bookstore-voice/internal/bootstrap"
	"bookstore-voice/internal/catalog"
	"bookstore-voice/internal/config"
	"bookstore-voice/internal/logging"
	"bookstore-voice/internal/repository"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("BOOKSTORE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.Log.SlogLevel()
	log := logging.NewComponentLogger(logging.InitLogger(os.Stderr, level), "catalog-import")

	path := flag.String("csv", cfg.Catalog.Path, "CSV catalog to import")
	table := flag.String("table", cfg.Catalog.Table, "DynamoDB table to write to")
	flag.Parse()

	src, err := catalog.NewFileSource(*path)
	if err != nil {
		log.Error("invalid catalog path", "err", err)
		os.Exit(1)
	}
	books, err := src.Books(ctx)
	if err != nil {
		log.Error("failed to read catalog", "path", *path, "err", err)
		os.Exit(1)
	}

	awsCfg, err := bootstrap.AWSConfig(ctx)
	if err != nil {
		log.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}
	repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), *table)
	if err != nil {
		log.Error("failed to create repository", "err", err)
		os.Exit(1)
	}

	for _, b := range books {
		if err := repo.PutBook(ctx, b); err != nil {
			log.Error("failed to write book", "book", b.Name, "err", err)
			os.Exit(1)
		}
	}
	log.Info("catalog imported", "books", len(books), "source", src.Name(), "target", repo.Name())
}
