// Package llm wraps the Gemini API for quiz generation and the chat tutor.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"studi/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrGenerationFailed is returned when the provider produced no parseable
// quiz payload (malformed JSON, missing fields, or an empty question list).
var ErrGenerationFailed = errors.New("quiz generation failed")

// ModelName is the Gemini model to use.
const ModelName = "gemini-2.0-flash"

// maxAttempts bounds retries against transient provider failures.
const maxAttempts = 3

// quizPromptTemplate is filled with question count and difficulty. The
// response contract matches models.Quiz exactly.
const quizPromptTemplate = `You are an expert educational quiz creator. Create a quiz with %d multiple choice questions at %s difficulty level based on the provided study material.

Return ONLY valid JSON in this format:
{
  "fileName": "filename",
  "questions": [
    {
      "id": 1,
      "question": "Question text here?",
      "options": ["Option 1", "Option 2", "Option 3", "Option 4"],
      "correctAnswers": [0],
      "type": "single"
    }
  ]
}

Rules:
- Generate exactly %d questions
- Difficulty level: %s (easy: basic recall, moderate: comprehension and application, hard: analysis and synthesis)
- Each question should have 4 options
- correctAnswers array contains the index(es) of correct options (0-3)
- type should be "single" for one correct answer, "multiple" for multiple correct answers
- Create questions that test understanding, not just recall
- Return ONLY valid JSON, no other text`

// chatPromptTemplate frames the tutor conversation. Placeholders: file name,
// study material, prior conversation, student question.
const chatPromptTemplate = `You are an expert AI tutor helping a student study their materials. You have access to the student's study document titled "%s".

Your role is to:
- Answer questions clearly and concisely
- Explain concepts in an easy-to-understand way
- Provide examples when helpful
- Create practice questions or quizzes when asked
- Encourage active learning
- Be patient and supportive

Study Material Context:
%s

Previous Conversation:
%s

Student's Question: %s`

// Client wraps the Gemini client with one model configured for JSON quiz
// output and one for free-form tutoring.
type Client struct {
	client    *genai.Client
	quizModel *genai.GenerativeModel
	chatModel *genai.GenerativeModel
}

// NewClient creates a new Gemini client from GEMINI_API_KEY.
func NewClient(ctx context.Context) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	quizModel := client.GenerativeModel(ModelName)
	quizModel.ResponseMIMEType = "application/json"
	quizModel.SetTemperature(0.2)
	quizModel.SetTopK(40)
	quizModel.SetTopP(0.95)
	quizModel.SetMaxOutputTokens(8192)

	chatModel := client.GenerativeModel(ModelName)
	chatModel.SetTemperature(0.7)

	return &Client{
		client:    client,
		quizModel: quizModel,
		chatModel: chatModel,
	}, nil
}

// Close closes the underlying Gemini client.
func (c *Client) Close() {
	c.client.Close()
}

// GenerateQuiz turns extracted study text into a structured quiz. Length is
// clamped to the supported set {5, 10, 20}; difficulty shapes the prompt only.
func (c *Client) GenerateQuiz(ctx context.Context, text, fileName string, length int, difficulty models.Difficulty) (*models.Quiz, error) {
	length = clampLength(length)
	prompt := fmt.Sprintf(quizPromptTemplate, length, difficulty, length, difficulty)
	material := fmt.Sprintf("Study Material from %q:\n\n%s", fileName, text)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(2 * time.Second)
		}

		resp, err := c.quizModel.GenerateContent(ctx, genai.Text(prompt), genai.Text(material))
		if err != nil {
			lastErr = fmt.Errorf("generate content (attempt %d): %w", attempt, err)
			continue
		}

		raw := responseText(resp)
		if raw == "" {
			lastErr = fmt.Errorf("no content generated (attempt %d)", attempt)
			continue
		}

		quiz, err := ParseQuizJSON(raw)
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt, err)
			continue
		}
		quiz.FileName = fileName
		return quiz, nil
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, maxAttempts, lastErr)
}

// Chat answers a tutoring question over the given study material. The caller
// is responsible for capping fileContent to its context budget.
func (c *Client) Chat(ctx context.Context, fileName, fileContent, message string, history []models.ChatTurn) (string, error) {
	prompt := fmt.Sprintf(chatPromptTemplate, fileName, fileContent, formatHistory(history), message)

	resp, err := c.chatModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("chat generation returned no content")
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func formatHistory(history []models.ChatTurn) string {
	if len(history) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		speaker := "AI Tutor"
		if turn.Role == "user" {
			speaker = "Student"
		}
		lines = append(lines, speaker+": "+turn.Content)
	}
	return strings.Join(lines, "\n\n")
}

func clampLength(length int) int {
	switch length {
	case 5, 10, 20:
		return length
	default:
		return 10
	}
}
