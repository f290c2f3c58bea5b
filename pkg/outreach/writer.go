// Package outreach drafts personalized first-contact messages for scored
// leads with an LLM. Prompts are budget-checked with a tokenizer before
// any API call is made, and transient API failures are retried with
// exponential backoff.
package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

const systemPrompt = "You are an expert outreach specialist."

// Writer drafts outreach messages through an LLM.
type Writer struct {
	llm   llms.Model
	cfg   config.OutreachConfig
	codec tokenizer.Codec
	log   *logrus.Entry
}

// New builds a Writer around any llms.Model. Used directly by tests; the
// production path goes through NewOpenAI.
func New(llm llms.Model, cfg config.OutreachConfig, logger *logrus.Entry) (*Writer, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrLLMGeneration, "initializing tokenizer: %v", err)
	}
	return &Writer{llm: llm, cfg: cfg, codec: codec, log: logger}, nil
}

// NewOpenAI builds a Writer backed by the OpenAI chat API.
func NewOpenAI(creds config.Credentials, cfg config.OutreachConfig, logger *logrus.Entry) (*Writer, error) {
	if err := creds.RequireOpenAI(); err != nil {
		return nil, err
	}
	llm, err := openai.New(
		openai.WithToken(creds.OpenAIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrLLMGeneration, "creating OpenAI client: %v", err)
	}
	return New(llm, cfg, logger)
}

// Prompt renders the user prompt for a lead. Exported so the dry-run path
// can show what would be sent.
func (w *Writer) Prompt(lead models.LeadDBEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing on behalf of %s from %s, a professional coaching business.\n",
		w.cfg.SenderName, w.cfg.SenderBusiness)
	b.WriteString("Generate a personalized message to reach out to a lead based on the following details:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", orUnknown(lead.Name))
	fmt.Fprintf(&b, "Role/Headline: %s\n", orUnknown(lead.Headline))
	fmt.Fprintf(&b, "Location: %s\n", orUnknown(lead.Location))
	fmt.Fprintf(&b, "Coaching fit score: %d/100\n", lead.FitScore)
	if lead.Notes != "" {
		fmt.Fprintf(&b, "Qualification notes: %s\n", lead.Notes)
	}
	b.WriteString("\nKeep the message professional, concise, and engaging.")
	return b.String()
}

// TokenCount returns the token count of the full prompt for a lead.
func (w *Writer) TokenCount(lead models.LeadDBEntry) (int, error) {
	ids, _, err := w.codec.Encode(systemPrompt + w.Prompt(lead))
	if err != nil {
		return 0, utils.WrapErrorf(utils.ErrLLMGeneration, "encoding prompt: %v", err)
	}
	return len(ids), nil
}

// Draft generates one outreach message. Prompts over the configured token
// budget are rejected before any API call. API failures are retried up to
// MaxRetries with exponential backoff.
func (w *Writer) Draft(ctx context.Context, lead models.LeadDBEntry) (string, error) {
	prompt := w.Prompt(lead)

	if w.cfg.PromptTokenBudget > 0 {
		tokens, err := w.TokenCount(lead)
		if err != nil {
			return "", err
		}
		if tokens > w.cfg.PromptTokenBudget {
			return "", utils.WrapErrorf(utils.ErrTokenBudget,
				"prompt for %s is %d tokens, budget is %d", lead.Name, tokens, w.cfg.PromptTokenBudget)
		}
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	var lastErr error
	delay := w.cfg.InitialRetryDelay
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			w.log.WithField("attempt", attempt).Warnf("Retrying message generation after error: %v", lastErr)
			if err := utils.SleepContext(ctx, delay); err != nil {
				return "", err
			}
			delay *= 2
			if w.cfg.MaxRetryDelay > 0 && delay > w.cfg.MaxRetryDelay {
				delay = w.cfg.MaxRetryDelay
			}
		}

		resp, err := w.llm.GenerateContent(ctx, messages,
			llms.WithTemperature(w.cfg.Temperature),
			llms.WithMaxTokens(w.cfg.MaxTokens),
		)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		message := strings.TrimSpace(resp.Choices[0].Content)
		if message == "" {
			lastErr = fmt.Errorf("blank completion content")
			continue
		}
		return message, nil
	}

	return "", utils.WrapErrorf(utils.ErrLLMGeneration,
		"generating message for %s after %d attempts: %v", lead.Name, w.cfg.MaxRetries+1, lastErr)
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
