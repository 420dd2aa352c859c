package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/collector.txt
	collectorRaw string

	//go:embed template/advisor.txt
	advisorRaw string

	//go:embed template/companion.txt
	companionRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router    string
	Collector string
	Advisor   string
	Companion string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:    strings.TrimSpace(routerRaw),
		Collector: strings.TrimSpace(collectorRaw),
		Advisor:   strings.TrimSpace(advisorRaw),
		Companion: strings.TrimSpace(companionRaw),
	}
}
