// Package service contains the business logic between handlers and repositories.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rewire/internal/clients/openai"
	"rewire/internal/middleware"
	"rewire/internal/models"
	"rewire/internal/observability"
)

// Source identifies where a generation run's tasks came from.
type Source string

const (
	// SourceModel means the completion API produced the tasks.
	SourceModel Source = "model"
	// SourceFallback means the built-in task list was used.
	SourceFallback Source = "fallback"
)

// ErrNoJSONArray is returned when a completion contains no JSON array.
var ErrNoJSONArray = errors.New("no JSON array found in completion")

// GenerationResult is the outcome of one generation run. Source lets callers
// tell a model response apart from the fallback list; the run itself never fails.
type GenerationResult struct {
	Tasks  []models.Task
	Source Source
}

const systemPrompt = "You are a recovery coach specializing in addiction treatment. " +
	"You create personalized tasks to help individuals overcome addiction, with careful " +
	"attention to their specific triggers, goals, and severity level."

// TaskGenerationService produces personalized recovery tasks from an
// addiction profile, degrading to a fixed fallback list on any failure.
type TaskGenerationService struct {
	client openai.Client
}

// NewTaskGenerationService returns a generator backed by the given completion
// client. A nil client is allowed; every run then uses the fallback list.
func NewTaskGenerationService(client openai.Client) *TaskGenerationService {
	return &TaskGenerationService{client: client}
}

// PartitionByDifficulty splits n into per-difficulty counts. Each level gets
// n/3; a remainder of one goes to easy, a remainder of two to easy and medium.
// The parts always sum to n and easy >= medium >= hard.
func PartitionByDifficulty(n int) (easy, medium, hard int) {
	if n < 0 {
		return 0, 0, 0
	}
	easy = n / 3
	medium = n / 3
	hard = n / 3
	switch n % 3 {
	case 1:
		easy++
	case 2:
		easy++
		medium++
	}
	return easy, medium, hard
}

// Generate produces count tasks for the profile. Any failure along the way
// (API call, parsing, validation yielding nothing usable) falls back to the
// built-in list; the result reports which path was taken.
func (s *TaskGenerationService) Generate(ctx context.Context, profile *models.AddictionProfile, count int) GenerationResult {
	tasks, err := s.generateFromModel(ctx, profile, count)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "task generation fell back to built-in list",
			slog.String("error", err.Error()),
			slog.Int("count", count),
		)
		observability.TaskGenerationOutcomes.WithLabelValues(string(SourceFallback)).Inc()
		return GenerationResult{Tasks: FallbackTasks(count), Source: SourceFallback}
	}

	observability.TaskGenerationOutcomes.WithLabelValues(string(SourceModel)).Inc()
	return GenerationResult{Tasks: tasks, Source: SourceModel}
}

func (s *TaskGenerationService) generateFromModel(ctx context.Context, profile *models.AddictionProfile, count int) ([]models.Task, error) {
	if s.client == nil {
		return nil, errors.New("completion client not configured")
	}

	easy, medium, hard := PartitionByDifficulty(count)
	prompt := buildPrompt(profile, easy, medium, hard)

	content, err := s.client.ChatCompletion(ctx, openai.ChatRequest{
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	tasks, err := ParseTasks(content)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, errors.New("completion contained no usable tasks")
	}
	return tasks, nil
}

func buildPrompt(profile *models.AddictionProfile, easy, medium, hard int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a personalized set of recovery tasks for someone dealing with %s addiction.\n\n", profile.AddictionType)
	b.WriteString("INDIVIDUAL PROFILE:\n")
	fmt.Fprintf(&b, "- Addiction Type: %s\n", profile.AddictionType)
	fmt.Fprintf(&b, "- Severity: %s\n", profile.Severity)
	fmt.Fprintf(&b, "- Triggers: %s\n", profile.Triggers)
	fmt.Fprintf(&b, "- Recovery Goals: %s\n\n", profile.RecoveryGoals)
	b.WriteString("CREATE THE FOLLOWING TASKS:\n")
	fmt.Fprintf(&b, "- %d EASY tasks (worth 5 marks each)\n", easy)
	fmt.Fprintf(&b, "- %d MEDIUM tasks (worth 10 marks each)\n", medium)
	fmt.Fprintf(&b, "- %d HARD tasks (worth 15 marks each)\n\n", hard)
	b.WriteString(`TASK REQUIREMENTS:
1. Be specific and actionable
2. Relate directly to the addiction type and recovery goals
3. Consider the individual's triggers
4. Match the appropriate difficulty level
5. Each task should be achievable in a reasonable timeframe

FORMAT:
Return your response as a JSON array of objects, each with the following properties:
- "title": A brief, descriptive title for the task
- "description": Detailed instructions for completing the task
- "difficulty": One of "EASY", "MEDIUM", or "HARD"
- "marks": 5 for EASY, 10 for MEDIUM, 15 for HARD

Example format (this is just an example, generate relevant tasks based on the profile):
[
    {
        "title": "Morning Meditation",
        "description": "Complete a 5-minute guided meditation focusing on cravings.",
        "difficulty": "EASY",
        "marks": 5
    }
]

YOUR RESPONSE MUST BE VALID JSON THAT CAN BE PARSED.
`)
	return b.String()
}

type generatedTask struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Difficulty  *string `json:"difficulty"`
	Marks       *int    `json:"marks"`
}

// ParseTasks extracts and validates the JSON task array embedded in a
// completion. Surrounding prose is tolerated; the substring between the first
// '[' and the last ']' is decoded. Objects missing any required field are
// dropped, unknown difficulty levels become medium, and marks are always
// rewritten from the difficulty.
func ParseTasks(content string) ([]models.Task, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONArray
	}

	var raw []generatedTask
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode task array: %w", err)
	}

	tasks := make([]models.Task, 0, len(raw))
	for _, item := range raw {
		if item.Title == nil || item.Description == nil || item.Difficulty == nil || item.Marks == nil {
			continue
		}
		difficulty := strings.ToLower(strings.TrimSpace(*item.Difficulty))
		if !models.ValidDifficulty(difficulty) {
			difficulty = models.DifficultyMedium
		}
		tasks = append(tasks, models.Task{
			Title:       *item.Title,
			Description: *item.Description,
			Difficulty:  difficulty,
			Marks:       models.MarksForDifficulty(difficulty),
		})
	}
	return tasks, nil
}

// FallbackTasks returns the first count entries of the built-in task list.
// The list holds three tasks per difficulty, ordered easy to hard.
func FallbackTasks(count int) []models.Task {
	fallback := []models.Task{
		{Title: "Daily Reflection Journal", Description: "Spend 5 minutes writing about your feelings and progress today.", Difficulty: models.DifficultyEasy, Marks: models.MarksEasy},
		{Title: "Hydration Goal", Description: "Drink 8 glasses of water throughout the day to maintain hydration.", Difficulty: models.DifficultyEasy, Marks: models.MarksEasy},
		{Title: "Trigger Identification", Description: "Make a list of 3 situations that triggered cravings in the past week.", Difficulty: models.DifficultyEasy, Marks: models.MarksEasy},
		{Title: "30-Minute Exercise", Description: "Complete 30 minutes of moderate exercise like walking, jogging, or cycling.", Difficulty: models.DifficultyMedium, Marks: models.MarksMedium},
		{Title: "Support Meeting", Description: "Attend a support group meeting online or in person.", Difficulty: models.DifficultyMedium, Marks: models.MarksMedium},
		{Title: "Stress Management Practice", Description: "Learn and practice a new stress management technique for 15 minutes.", Difficulty: models.DifficultyMedium, Marks: models.MarksMedium},
		{Title: "Difficult Conversation", Description: "Have an honest conversation with someone impacted by your addiction.", Difficulty: models.DifficultyHard, Marks: models.MarksHard},
		{Title: "Full Day Challenge", Description: "Complete a full day without engaging in your addictive behavior, using all your coping strategies.", Difficulty: models.DifficultyHard, Marks: models.MarksHard},
		{Title: "Temptation Navigation", Description: "Deliberately expose yourself to a moderate trigger and practice your coping skills to overcome it.", Difficulty: models.DifficultyHard, Marks: models.MarksHard},
	}
	if count < 0 {
		count = 0
	}
	if count > len(fallback) {
		count = len(fallback)
	}
	return fallback[:count]
}
