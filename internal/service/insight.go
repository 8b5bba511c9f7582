package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/pokerjest/animeAggregator/internal/llm"
	"github.com/pokerjest/animeAggregator/internal/model"
)

const (
	analysisSystem = `You are an anime expert who writes detailed analyses and recommendations.
Analyse the anime below and provide:
1. A concise summary
2. Highlights
3. Target audience
4. Comparisons with similar anime where relevant`

	recommendSystem = `You are an anime expert who gives personalised recommendations based on the user's preferences.
Give 5 to 10 specific recommendations with a detailed reason for each.`

	culturalSystem = `You are an expert in Japanese culture and anime. Explain cultural elements, historical references, traditions and social context found in anime.`

	characterSystem = `You are a psychologist specialised in anime characters.
Write a deep psychological analysis covering:
1. Personality and motivations
2. Traumas and growth
3. Relationships with other characters
4. Narrative arc
5. Symbolism`

	synopsisSystem = `You are an anime marketing expert. Write a short, catchy synopsis for social media.
Requirements:
- At most 280 characters
- Exciting and intriguing
- Key elements without spoilers
- Persuasive tone`
)

const (
	descriptionExcerpt = 400
	synopsisExcerpt    = 500
)

type Analysis struct {
	Analysis string             `json:"analysis"`
	Anime    *model.AnimeRecord `json:"anime"`
	Model    string             `json:"model"`
}

type Recommendation struct {
	Recommendations string   `json:"recommendations"`
	Preferences     string   `json:"preferences"`
	History         []string `json:"history"`
	Model           string   `json:"model"`
}

type CulturalExplanation struct {
	Explanation string `json:"explanation"`
	Anime       string `json:"anime"`
	Element     string `json:"element"`
	Model       string `json:"model"`
}

type CharacterAnalysis struct {
	CharacterAnalysis string   `json:"characterAnalysis"`
	Character         string   `json:"character"`
	Anime             string   `json:"anime"`
	Traits            []string `json:"traits"`
	Model             string   `json:"model"`
}

type Synopsis struct {
	ShortSynopsis  string `json:"shortSynopsis"`
	CharacterCount int    `json:"characterCount"`
	Model          string `json:"model"`
}

// InsightService builds prompts around catalog records for the language model.
type InsightService struct {
	anime AnimeFinder
	llm   llm.Completer
}

func NewInsightService(anime AnimeFinder, completer llm.Completer) *InsightService {
	return &InsightService{anime: anime, llm: completer}
}

func (s *InsightService) Analyze(ctx context.Context, id int) (*Analysis, error) {
	if id <= 0 {
		return nil, ErrBadInput
	}
	anime, err := s.anime.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Analyse this anime:
Title: %s
Genres: %s
Status: %s
Episodes: %s
Description: %s`,
		orDefault(anime.Title.Preferred(), "Untitled"),
		orDefault(strings.Join(anime.Genres, ", "), "Not specified"),
		orDefault(lo.FromPtr(anime.Status), "Unknown"),
		intOrDefault(anime.Episodes, "Not specified"),
		excerpt(lo.FromPtr(anime.Description), descriptionExcerpt, "No description"),
	)

	out, err := s.llm.Complete(ctx, prompt, analysisSystem)
	if err != nil {
		return nil, err
	}
	return &Analysis{Analysis: out.Text, Anime: anime, Model: out.Model}, nil
}

func (s *InsightService) Recommend(ctx context.Context, preferences string, history []string) (*Recommendation, error) {
	if strings.TrimSpace(preferences) == "" {
		return nil, ErrBadInput
	}
	history = lo.Compact(history)

	var b strings.Builder
	fmt.Fprintf(&b, "Based on these preferences: %q", preferences)
	if len(history) > 0 {
		fmt.Fprintf(&b, "\n\nThe user has already watched: %s", strings.Join(history, ", "))
	}
	b.WriteString("\n\nGive personalised anime recommendations with detailed explanations.")

	out, err := s.llm.Complete(ctx, b.String(), recommendSystem)
	if err != nil {
		return nil, err
	}
	return &Recommendation{
		Recommendations: out.Text,
		Preferences:     preferences,
		History:         lo.Ternary(history == nil, []string{}, history),
		Model:           out.Model,
	}, nil
}

func (s *InsightService) CulturalContext(ctx context.Context, title, element string) (*CulturalExplanation, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(element) == "" {
		return nil, ErrBadInput
	}
	prompt := fmt.Sprintf(`In the anime %q, explain the cultural context of %q. Include historical background, cultural meaning and why it matters to the story.`, title, element)

	out, err := s.llm.Complete(ctx, prompt, culturalSystem)
	if err != nil {
		return nil, err
	}
	return &CulturalExplanation{Explanation: out.Text, Anime: title, Element: element, Model: out.Model}, nil
}

func (s *InsightService) CharacterAnalysis(ctx context.Context, name, title string, traits []string) (*CharacterAnalysis, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(title) == "" {
		return nil, ErrBadInput
	}
	traits = lo.Compact(traits)

	var b strings.Builder
	fmt.Fprintf(&b, "Analyse this anime character in depth:\n\nCHARACTER: %s\nANIME: %s\n", name, title)
	if len(traits) > 0 {
		fmt.Fprintf(&b, "KNOWN TRAITS: %s\n", strings.Join(traits, ", "))
	}
	b.WriteString(`
Provide:
- A full psychological profile
- An analysis of their motivations
- How they change over the series
- Their impact on the story
- A comparison with classic archetypes`)

	out, err := s.llm.Complete(ctx, b.String(), characterSystem)
	if err != nil {
		return nil, err
	}
	return &CharacterAnalysis{
		CharacterAnalysis: out.Text,
		Character:         name,
		Anime:             title,
		Traits:            lo.Ternary(traits == nil, []string{}, traits),
		Model:             out.Model,
	}, nil
}

func (s *InsightService) ShortSynopsis(ctx context.Context, id int) (*Synopsis, error) {
	if id <= 0 {
		return nil, ErrBadInput
	}
	anime, err := s.anime.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Write a short synopsis for this anime:
TITLE: %s
GENRES: %s
ORIGINAL DESCRIPTION: %s`,
		orDefault(anime.Title.Preferred(), "Untitled"),
		orDefault(strings.Join(anime.Genres, ", "), "Not specified"),
		excerpt(lo.FromPtr(anime.Description), synopsisExcerpt, "No description"),
	)

	out, err := s.llm.Complete(ctx, prompt, synopsisSystem)
	if err != nil {
		return nil, err
	}
	return &Synopsis{
		ShortSynopsis:  out.Text,
		CharacterCount: utf8.RuneCountInString(out.Text),
		Model:          out.Model,
	}, nil
}

// Chat forwards a free-form message with optional system instructions.
func (s *InsightService) Chat(ctx context.Context, message, system string) (*llm.Completion, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrBadInput
	}
	out, err := s.llm.Complete(ctx, message, system)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func intOrDefault(n *int, def string) string {
	if n == nil {
		return def
	}
	return fmt.Sprint(*n)
}

func excerpt(s string, limit int, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
