package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"adaptive-dialogue-be/internal/bootstrap"
	"adaptive-dialogue-be/internal/config"
	"adaptive-dialogue-be/internal/tracer"
	"adaptive-dialogue-be/pkg/agent"
	"adaptive-dialogue-be/pkg/database"
	embFactory "adaptive-dialogue-be/pkg/embedding/factory"
	"adaptive-dialogue-be/pkg/retrieval"
)

func loadIndexedBlocks(path string) ([]retrieval.IndexedBlock, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blocks file: %w", err)
	}
	var blocks []retrieval.IndexedBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks file: %w", err)
	}
	return blocks, nil
}

func main() {
	cfg := config.Load()

	blocksPath := flag.String("blocks", "blocks.json", "path to the embedded corpus blocks")
	sessionID := flag.String("session", "", "session id to resume, empty starts a new one")
	userID := flag.String("user", "cli", "user id attached to the session")
	flag.Parse()

	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	blocks, err := loadIndexedBlocks(*blocksPath)
	if err != nil {
		log.Fatalf("Unable to load corpus blocks: %v", err)
	}
	log.Printf("[INFO] Loaded %d corpus blocks", len(blocks))

	queryEmbedder, err := embFactory.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaEmbedModel,
	)
	if err != nil {
		log.Fatalf("Unable to initialize embedding provider: %v", err)
	}
	retriever := retrieval.NewVectorRetriever(blocks, queryEmbedder)

	container := bootstrap.NewContainer(gormDB, cfg, retriever, nil, nil)
	defer container.Logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.PersistenceQueue.Consume(ctx); err != nil {
		log.Fatalf("Unable to start persistence queue: %v", err)
	}

	session := *sessionID
	if session == "" {
		session = uuid.NewString()
	}
	fmt.Printf("Сессия %s. Пустая строка или exit для выхода.\n\n", session)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" || query == "exit" || query == "quit" {
			break
		}

		answer, err := container.Answerer.Answer(ctx, agent.Request{
			SessionID: session,
			UserID:    *userID,
			Query:     query,
		})
		if err != nil {
			log.Printf("[ERROR] %v", err)
			continue
		}

		fmt.Printf("\n%s\n", answer.Answer)
		fmt.Printf("[%s | %s | confidence %.2f | blocks %d | %s]\n",
			answer.Mode, answer.Stage, answer.ConfidenceScore, answer.BlocksUsed, answer.ProcessingTime.Round(time.Millisecond))
		if answer.FeedbackPrompt != "" {
			fmt.Printf("%s\n", answer.FeedbackPrompt)
		}
		fmt.Println()
	}
}
