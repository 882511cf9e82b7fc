// verify-agent sends one sample request to the AI agent and prints the
// proposed action without executing it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/ai"
	"github.com/Chu4ik/TG-BOT-PRIVLECHENKA-sub000/internal/config"
)

const catalog = `
PRODUCTS
1 Apples 1kg  price 1.90
2 Pears 1kg   price 2.30
CLIENTS
1 Corner Grocery  addresses: 1 Corner Grocery, main entrance
EMPLOYEES
1 Olena (sales)
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY not set")
	}

	agent := ai.NewAgent(cfg.OpenAIAPIKey)
	tools := ai.EngineTools()

	request := "Corner Grocery wants 10 kg of apples delivered tomorrow."
	if len(os.Args) > 1 {
		request = os.Args[1]
	}

	fmt.Printf("INTERPRETING REQUEST: %s\n", request)
	proposal, err := agent.ProposeAction(context.Background(), request, catalog, tools)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("\n--- PROPOSAL ---\n")
	fmt.Printf("Action: %s\n", proposal.Action)
	fmt.Printf("Confidence: %.2f\n", proposal.Confidence)
	fmt.Printf("Summary: %s\n", proposal.Summary)
	fmt.Printf("Reasoning: %s\n", proposal.Reasoning)
	fmt.Printf("Arguments: %s\n", proposal.Arguments)
}
