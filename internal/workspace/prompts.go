package workspace

import (
	"fmt"

	"github.com/ashureev/genomics-xai/internal/panel"
)

// Panel names.
const (
	PanelCellStatus           = "cell-status"
	PanelCellType             = "cell-type"
	PanelMarkerExplainability = "marker-explainability"
	PanelMarkerPathway        = "marker-pathway"
	PanelAssistant            = "assistant"
)

// AssistantChat is the persona of the Ask With AI view.
var AssistantChat = panel.ChatConfig{
	Greeting: "Hello! I'm your XAI Assistant. I can help you interpret genomic results, " +
		"explain biological pathways, or assist with your automated pipelines. What's on your mind?",
	SystemInstruction: "You are a highly specialized AI assistant for genomic researchers. " +
		"Provide precise, academic, yet accessible answers. DO NOT use markdown symbols like " +
		"asterisks for bolding or lists. Use plain, professional text with standard punctuation.",
}

const (
	cellStatusPrompt = "Analyze the experiment status. DO NOT use markdown symbols like asterisks " +
		"for bolding or lists. Use plain, professional text only."
	cellStatusInstruction = "You are an expert bioinformatician. Provide high-quality technical " +
		"status reasoning. AVOID ALL MARKDOWN SYMBOLS like asterisks. Use standard professional " +
		"punctuation and spacing."

	cellTypeInstruction = "You are a lead computational biologist. Provide distinct explanations. " +
		"AVOID ALL MARKDOWN SYMBOLS like asterisks. Use standard professional typography only."

	markerGeneInstruction = "You are a specialized computational biologist. Avoid all markdown " +
		"formatting symbols like asterisks. Use standard professional typography."
)

func cellStatusRequest() panel.Request {
	return panel.Request{
		Subject:           "experiment status",
		Prompt:            cellStatusPrompt,
		SystemInstruction: cellStatusInstruction,
	}
}

func cellTypeRequest(cluster string) panel.Request {
	return panel.Request{
		Subject: cluster,
		Prompt: fmt.Sprintf("Explain the classification of %s. DO NOT use markdown symbols like "+
			"asterisks for bolding or lists. Use plain, professional text only. Structure with "+
			"'%s' and '%s' tags.", cluster, panel.EvidenceMarker, panel.InferenceMarker),
		SystemInstruction: cellTypeInstruction,
	}
}

func explainabilityRequest(gene string) panel.Request {
	return panel.Request{
		Subject:           gene,
		Prompt:            fmt.Sprintf("Provide a highly technical XAI explanation for why gene %s is a primary driver. NO MARKDOWN.", gene),
		SystemInstruction: markerGeneInstruction,
	}
}

func pathwayRequest(gene string) panel.Request {
	return panel.Request{
		Subject:           gene,
		Prompt:            fmt.Sprintf("Explain the canonical biological pathways influenced by %s in the context of cancer. NO MARKDOWN.", gene),
		SystemInstruction: markerGeneInstruction,
	}
}
