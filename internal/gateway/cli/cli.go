// Package cli implements the console channel: an interactive REPL on
// stdin where the creator talks to the mind directly. The local console
// is trusted, so the speaker defaults to the creator.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ckaya/ali/internal/mind"
)

// Gateway is the interactive command-line channel.
type Gateway struct {
	mind    *mind.Mind
	speaker string
	logger  *slog.Logger
	done    chan struct{} // closed by Stop to signal shutdown
}

// NewGateway creates a console channel speaking as the given name.
// An empty speaker means the creator.
func NewGateway(m *mind.Mind, speaker string, logger *slog.Logger) *Gateway {
	if speaker == "" {
		speaker = m.Creator()
	}
	return &Gateway{
		mind:    m,
		speaker: speaker,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start runs the interactive REPL. Blocks until ctx is cancelled,
// Stop is called, or the user types "exit".
func (g *Gateway) Start(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	snap := g.mind.Snapshot()
	fmt.Printf("%s — %.1f hours old, %s phase.\n", snap.Name, snap.AgeHours, snap.Phase)
	fmt.Println("Type your message (or \"exit\" to quit).")
	fmt.Println()

	for {
		fmt.Printf("%s> ", strings.ToLower(g.speaker))

		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down.")
			return nil
		case <-g.done:
			fmt.Println("\nShutting down.")
			return nil
		default:
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Println("Goodbye.")
			return nil
		}

		resp, err := g.mind.Process(ctx, &mind.Input{Content: line, Speaker: g.speaker})
		if err != nil {
			g.logger.ErrorContext(ctx, "processing console input",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(resp.Content)
		fmt.Printf("  [%s %.2f", resp.Emotion, resp.EmotionIntensity)
		if resp.ConsciousThought != nil {
			fmt.Printf(" | thought: %s", resp.ConsciousThought.Source)
		}
		fmt.Printf(" | phi: %d]\n\n", resp.Phi)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

// Stop signals the REPL to exit at the next prompt.
func (g *Gateway) Stop(_ context.Context) error {
	select {
	case <-g.done:
	default:
		close(g.done)
	}
	return nil
}
