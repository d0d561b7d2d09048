package bootstrap

import (
	"log"

	"adaptive-dialogue-be/internal/config"
	"adaptive-dialogue-be/internal/pkg/logger"
	repoMemory "adaptive-dialogue-be/internal/repository/memory"
	"adaptive-dialogue-be/internal/repository/unitofwork"
	"adaptive-dialogue-be/internal/service"
	"adaptive-dialogue-be/pkg/agent"
	embFactory "adaptive-dialogue-be/pkg/embedding/factory"
	llmFactory "adaptive-dialogue-be/pkg/llm/factory"
	"adaptive-dialogue-be/pkg/memory"
	"adaptive-dialogue-be/pkg/policy"
	"adaptive-dialogue-be/pkg/response"
	"adaptive-dialogue-be/pkg/retrieval"

	pktNats "adaptive-dialogue-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

const turnPersistenceTopic = "conversation.turn.persist"

// Container wires the dialogue pipeline. The corpus retriever and reranker
// come from the caller; everything else is assembled from config.
type Container struct {
	Answerer         *agent.AdaptiveAnswerer
	SessionStore     *service.SessionStore
	Registry         *repoMemory.ConversationRegistry
	PersistenceQueue *service.PersistenceQueue
	NatsPublisher    *pktNats.Publisher
	Logger           logger.ILogger
}

func NewContainer(
	db *gorm.DB,
	cfg *config.Config,
	retriever retrieval.Retriever,
	reranker retrieval.Reranker,
	classifier agent.StateClassifier,
) *Container {
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	embeddingProvider, err := embFactory.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaEmbedModel,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding provider: %v", err)
	}
	log.Printf("[INFO] Using embedding provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := llmFactory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] NATS publisher unavailable: %v", err)
	}

	store := service.NewSessionStore(uowFactory, sysLogger)
	queue := service.NewPersistenceQueue(pubSub, turnPersistenceTopic, store, sysLogger)

	memCfg := memory.DefaultConfig()
	memCfg.HistoryDepth = cfg.Memory.HistoryDepth
	memCfg.MaxContextSize = cfg.Memory.MaxContextSize
	memCfg.MaxTurns = cfg.Memory.MaxTurns
	memCfg.SummaryInterval = cfg.Memory.SummaryInterval
	memCfg.SemanticEnabled = cfg.Memory.SemanticEnabled
	memCfg.SemanticTopK = cfg.Memory.SemanticTopK
	memCfg.SemanticMinScore = cfg.Memory.SemanticMinScore
	memCfg.SemanticMaxChars = cfg.Memory.SemanticMaxChars
	memCfg.SemanticSkipLastN = cfg.Memory.SemanticSkipLastN

	summarizer := memory.NewLLMSummarizer(llmProvider)
	registry := repoMemory.NewConversationRegistry(store, embeddingProvider, summarizer, memCfg)

	scorer := policy.NewConfidenceScorerWith(nil, cfg.Engine.LowThreshold, cfg.Engine.HighThreshold)
	gate := policy.NewDecisionGate(scorer, nil, nil)
	detector := policy.NewSignalDetector(cfg.Engine.ExplicitAskPhrases)
	queryBuilder := retrieval.NewHybridQueryBuilder(
		cfg.Engine.QueryMaxChars,
		cfg.Engine.QuerySummaryChars,
		cfg.Engine.QueryShortTermChars,
	)
	generator := response.NewGenerator(llmProvider, cfg.Ai.LLMModel, cfg.Ai.LLMTemperature, cfg.Ai.LLMMaxTokens)

	answerer := agent.NewAdaptiveAnswerer(
		registry,
		classifier,
		retriever,
		reranker,
		queryBuilder,
		detector,
		gate,
		nil,
		generator,
		nil,
		queue,
		sysLogger,
		agent.Config{
			TopKBlocks:   cfg.Engine.TopKBlocks,
			RerankTopK:   cfg.Engine.TopKBlocks,
			HistoryDepth: cfg.Memory.HistoryDepth,
		},
	)

	return &Container{
		Answerer:         answerer,
		SessionStore:     store,
		Registry:         registry,
		PersistenceQueue: queue,
		NatsPublisher:    natsPub,
		Logger:           sysLogger,
	}
}
