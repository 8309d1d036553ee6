package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/envutil"
	"github.com/luftkuhl/ninethree-backend/internal/platform/huggingface"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/nhtsa"
	"github.com/luftkuhl/ninethree-backend/internal/platform/pinecone"
	"github.com/luftkuhl/ninethree-backend/internal/platform/s3"
	"github.com/luftkuhl/ninethree-backend/internal/platform/shutdown"
	"github.com/luftkuhl/ninethree-backend/internal/services"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

// Terminal chat harness for poking at the retrieval pipeline without the
// HTTP server. One-shot with -q, interactive otherwise.
func main() {
	question := flag.String("q", "", "ask a single question and exit")
	user := flag.String("user", "", "load this user's car profile from storage")
	verbose := flag.Bool("verbose", false, "print retrieved sources")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := shutdown.NotifyContext(context.Background())
	defer cancel()

	log, err := logger.New("prod")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	llm, err := anthropic.New(log, anthropic.ConfigFromEnv())
	if err != nil {
		fatal(err)
	}
	embedder, err := huggingface.New(log, huggingface.ConfigFromEnv())
	if err != nil {
		fatal(err)
	}
	index, err := pinecone.New(log, pinecone.ConfigFromEnv())
	if err != nil {
		fatal(err)
	}

	search := services.NewSearchService(log, embedder, index, envutil.Get("PINECONE_INDEX", "porsche-993"))
	pipeline := services.NewAnswerPipeline(
		log,
		llm,
		services.NewRewriteService(log, llm),
		search,
		services.NewPromptService(),
		services.NewPartsService(),
	)

	profile := loadProfile(ctx, log, *user)

	if *question != "" {
		if err := ask(ctx, pipeline, search, *question, nil, profile, *verbose); err != nil {
			fatal(err)
		}
		return
	}
	interactive(ctx, pipeline, search, profile, *verbose)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func loadProfile(ctx context.Context, log *logger.Logger, user string) *types.CarProfile {
	if user == "" {
		return nil
	}
	blob, err := s3.New(ctx, log, s3.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage unavailable, continuing without profile: %v\n", err)
		return nil
	}
	vins, err := nhtsa.New(log)
	if err != nil {
		return nil
	}
	profile, err := services.NewProfileService(log, blob, vins).Load(ctx, user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile load failed, continuing without it: %v\n", err)
		return nil
	}
	return profile
}

func ask(
	ctx context.Context,
	pipeline services.AnswerPipeline,
	search services.SearchService,
	question string,
	history []types.Turn,
	profile *types.CarProfile,
	verbose bool,
) error {
	_, meta, err := pipeline.Answer(ctx, question, history, profile, func(delta string) {
		fmt.Print(delta)
	})
	if err != nil {
		return err
	}
	fmt.Println()

	if verbose {
		fmt.Printf("\n🔍 search query: %q (rewritten=%v)\n", meta.SearchQuery, meta.Rewritten)
		for i, s := range meta.Sources {
			if i >= 5 {
				break
			}
			fmt.Printf("   [%.3f] %.50s (%s)\n", s.Relevance, s.Title, s.Source)
		}
	}
	return nil
}

func interactive(
	ctx context.Context,
	pipeline services.AnswerPipeline,
	search services.SearchService,
	profile *types.CarProfile,
	verbose bool,
) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("🔧 Porsche 993 Repair Assistant")
	fmt.Println("   Powered by real forum knowledge (Pinecone + Claude)")
	fmt.Println("   Type 'quit' to exit, 'verbose' to toggle source details")
	fmt.Println(strings.Repeat("=", 60))

	if stats, err := search.Stats(ctx); err != nil {
		fmt.Printf("⚠️  knowledge base unreachable: %v\n", err)
	} else {
		fmt.Printf("📊 knowledge base: %d chunks indexed\n", stats.TotalVectorCount)
	}

	var history []types.Turn
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n❓ ")
		if !scanner.Scan() {
			fmt.Println("\n👋 Bye!")
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		switch strings.ToLower(question) {
		case "quit", "exit", "q":
			fmt.Println("👋 Bye!")
			return
		case "verbose":
			verbose = !verbose
			fmt.Printf("verbose: %v\n", verbose)
			continue
		}

		fmt.Println()
		full, meta, err := pipeline.Answer(ctx, question, history, profile, func(delta string) {
			fmt.Print(delta)
		})
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if verbose {
			fmt.Printf("\n🔍 search query: %q (rewritten=%v)\n", meta.SearchQuery, meta.Rewritten)
		}
		history = append(history,
			types.Turn{Role: types.RoleUser, Content: question},
			types.Turn{Role: types.RoleAssistant, Content: full},
		)
	}
}
