package factory

import (
	"fmt"
	"os"

	"adaptive-dialogue-be/pkg/embedding"
	"adaptive-dialogue-be/pkg/embedding/jina"
)

func NewEmbeddingProvider(providerType, baseURL, model string) (embedding.EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return embedding.NewOllamaProvider(baseURL, model), nil
	case "gemini":
		return embedding.NewGeminiProvider(os.Getenv("GEMINI_API_KEY")), nil
	case "jina":
		return jina.NewJinaProvider(os.Getenv("JINA_API_KEY")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
