package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	addressx "github.com/erabu-ai/agentcore/agent/address"
	"github.com/erabu-ai/agentcore/agent/agents/orchestrator"
	"github.com/erabu-ai/agentcore/agent/agents/specialist"
	itemsx "github.com/erabu-ai/agentcore/agent/items"
	llmx "github.com/erabu-ai/agentcore/agent/llm"
	quotex "github.com/erabu-ai/agentcore/agent/quote"
	statex "github.com/erabu-ai/agentcore/agent/state"
	configx "github.com/erabu-ai/agentcore/pkg/config"
	_ "github.com/erabu-ai/agentcore/pkg/logger/autoload"
	openrouterx "github.com/erabu-ai/agentcore/pkg/openrouter"
)

func main() {
	ctx := context.Background()

	llmCfg := configx.MustNew[llmx.Config]("LLM")

	storeCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	store, err := statex.NewUpstashRedisStore(*storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session store")
	}

	registry, err := specialist.NewRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model registry")
	}

	opts := []orchestrator.Option{}

	if addressCfg, err := configx.New[addressx.Config]("ADDRESS"); err == nil {
		verifier, verr := addressx.NewHTTPVerifier(*addressCfg)
		if verr != nil {
			log.Fatal().Err(verr).Msg("failed to initialize address verifier")
		}
		opts = append(opts, orchestrator.WithAddressVerifier(verifier))
	} else {
		log.Warn().Err(err).Msg("address verification disabled")
	}

	if quoteCfg, err := configx.New[quotex.Config]("QUOTE_PG"); err == nil {
		db, derr := quotex.NewDB(*quoteCfg)
		if derr != nil {
			log.Fatal().Err(derr).Msg("failed to open quote database")
		}
		quotes, qerr := quotex.NewService(db)
		if qerr != nil {
			log.Fatal().Err(qerr).Msg("failed to initialize quote service")
		}
		if err := quotes.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure quote schema")
		}
		opts = append(opts, orchestrator.WithQuoteSink(quotes))
	} else {
		log.Warn().Err(err).Msg("quote export disabled")
	}

	if orCfg, err := configx.New[openrouterx.Config]("OPENROUTER_VISION"); err == nil {
		client := openrouterx.NewClient(*orCfg)
		if client == nil {
			log.Fatal().Msg("failed to initialize vision client")
		}
		recognizer, rerr := itemsx.NewVisionRecognizer(client, orCfg.Model)
		if rerr != nil {
			log.Fatal().Err(rerr).Msg("failed to initialize item recognizer")
		}
		opts = append(opts, orchestrator.WithItemRecognizer(recognizer))
	} else {
		log.Warn().Err(err).Msg("image item recognition disabled")
	}

	orch, err := orchestrator.New(ctx, store, registry, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	runREPL(ctx, orch)
}

// runREPL drives a single local session over stdin, streaming replies
// to stdout. Useful for manual smoke runs against live models.
func runREPL(ctx context.Context, orch *orchestrator.Orchestrator) {
	sessionID := uuid.NewString()
	fmt.Printf("session %s (ctrl-d to quit)\n", sessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		out, err := orch.HandleTurn(ctx, sessionID, text, func(delta string) {
			fmt.Print(delta)
		})
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}

		fmt.Println()
		fmt.Printf("[phase=%s next=%s done=%.0f%%]\n", out.Phase, out.NextField, out.Completion.Fraction*100)
		if len(out.QuickReplies) > 0 {
			fmt.Printf("[options: %s]\n", strings.Join(out.QuickReplies, " | "))
		}
		if out.NeedsConfirm {
			fmt.Println("[awaiting confirmation]")
		}
		if out.Export != nil {
			fmt.Printf("[quote %s stored=%t]\n", out.Export.QuoteID, out.Export.Stored)
		}
	}
}
