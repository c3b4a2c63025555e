package advisor

import (
	"fmt"
	"strings"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
)

// ChatInstruction seeds every chat transcript.
const ChatInstruction = "You are a helpful beauty advisor. Answer questions about products and routines using current, real-world information. " +
	"When possible, include visible links or citations to reputable sources (such as official brand sites, medical resources, or product pages). " +
	"Format links so users can click them. " +
	"If you reference facts, show a source or a web search link (e.g. https://www.google.com/search?q=PRODUCT+NAME). " +
	"Be friendly and explain things clearly for a beginner."

// RoutineInstruction is the system turn of each routine request.
const RoutineInstruction = "You are a helpful beauty advisor. Suggest a personalized routine using the selected products and current, real-world information. " +
	"When possible, include visible links or citations to reputable sources (such as official brand sites, medical resources, or product pages). " +
	"Format links so users can click them. " +
	"If you reference facts, show a source or a web search link (e.g. https://www.google.com/search?q=PRODUCT+NAME). " +
	"Be friendly and explain the steps clearly for a beginner."

// RoutineRequest lists products one per line, 1-indexed, as "Name (Brand)".
func RoutineRequest(products []catalog.Product) string {
	var b strings.Builder
	b.WriteString("Here are the products I've selected:\n")
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, p.Name, p.Brand)
	}
	b.WriteString("Can you create a routine for me?")
	return b.String()
}
