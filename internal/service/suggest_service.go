package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smallwares/backoffice/internal/adapter/cache"
	"github.com/smallwares/backoffice/internal/adapter/llm"
)

const maxSuggestedTags = 10

const suggestPromptTemplate = `Based on the following product information, suggest 5-10 relevant tags that would help categorize and find this product. Return only the tags separated by commas, without any additional text or explanation.

Product Name: %s
Product Description: %s

Tags:`

// TagSuggester asks the text-generation service for catalog tags and caches
// the answers. The model output is untrusted free text; everything beyond
// comma-splitting is discarded.
type TagSuggester struct {
	llm      llm.Client
	cache    cache.TagCache
	cacheTTL time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewTagSuggester wires dependencies.
func NewTagSuggester(client llm.Client, tagCache cache.TagCache, cacheTTL time.Duration, logger *zap.Logger) *TagSuggester {
	return &TagSuggester{
		llm:      client,
		cache:    tagCache,
		cacheTTL: cacheTTL,
		logger:   logger,
		tracer:   otel.Tracer("github.com/smallwares/backoffice/internal/service"),
	}
}

// Suggest returns up to 10 tags for the given product content.
func (s *TagSuggester) Suggest(ctx context.Context, name, description string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "TagSuggester.Suggest")
	defer span.End()

	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "Name is required."
	}
	if strings.TrimSpace(description) == "" {
		fields["description"] = "Description is required."
	}
	if len(fields) > 0 {
		return nil, errValidation(fields)
	}

	key := suggestCacheKey(name, description)
	if cached, err := s.cache.Get(ctx, key); err != nil {
		// Cache trouble is not worth failing the request over.
		s.log().Warn("tag cache lookup failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	prompt := fmt.Sprintf(suggestPromptTemplate, name, description)
	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		s.log().Error("tag suggestion failed", zap.Error(err))
		return nil, errInternal()
	}

	tags := parseTags(raw)
	if err := s.cache.Set(ctx, key, tags, s.cacheTTL); err != nil {
		s.log().Warn("tag cache store failed", zap.Error(err))
	}
	return tags, nil
}

func (s *TagSuggester) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *TagSuggester) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func suggestCacheKey(name, description string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(description))))
	return "tags:" + hex.EncodeToString(sum[:])
}

// parseTags splits model output on commas, trims, drops empties and caps the
// list at maxSuggestedTags.
func parseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxSuggestedTags {
			break
		}
	}
	return tags
}
