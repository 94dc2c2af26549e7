package llm

import (
	"context"
	"fmt"
)

const studyGuidePrompt = `You are an expert study-guide writer for college students. Given lecture
notes, produce a comprehensive study guide in markdown. Include: a condensed
outline, key definitions, common confusions or misconceptions to watch out
for, and 3-5 practice questions with answers.

Respond with JSON matching exactly this schema:
{"guide":"string"}

Lecture notes:
%s

Generate a study guide.`

const quizPrompt = `You are an expert quiz writer for college students. Given lecture notes,
generate exactly the requested number of multiple-choice questions. Each
question must have 4 options, one correct answer, and a brief explanation.
Questions should test understanding, not just recall. Vary difficulty
across the set.

Respond with JSON matching exactly this schema:
{"questions":[{"question":"string","options":["a","b","c","d"],"correct_index":0,"explanation":"string"}]}

Lecture notes:
%s

Generate exactly %d multiple-choice questions.`

type studyGuideResponse struct {
	Guide string `json:"guide"`
}

// QuizQuestion is one multiple-choice question with exactly four options
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type quizResponse struct {
	Questions []QuizQuestion `json:"questions"`
}

// StudyGuide generates a condensed study guide from notes markdown
func (c *Client) StudyGuide(ctx context.Context, notesMarkdown string) (string, error) {
	var resp studyGuideResponse
	if err := c.generateJSON(ctx, fmt.Sprintf(studyGuidePrompt, notesMarkdown), &resp); err != nil {
		return "", fmt.Errorf("study guide generation failed: %w", err)
	}
	if resp.Guide == "" {
		return "", fmt.Errorf("study guide generation returned empty guide")
	}
	return resp.Guide, nil
}

// Quiz generates numQuestions multiple-choice questions from notes markdown
func (c *Client) Quiz(ctx context.Context, notesMarkdown string, numQuestions int) ([]QuizQuestion, error) {
	if numQuestions <= 0 {
		numQuestions = 10
	}

	var resp quizResponse
	if err := c.generateJSON(ctx, fmt.Sprintf(quizPrompt, notesMarkdown, numQuestions), &resp); err != nil {
		return nil, fmt.Errorf("quiz generation failed: %w", err)
	}

	for i, q := range resp.Questions {
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("question %d has %d options, want 4", i, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
			return nil, fmt.Errorf("question %d has correct_index %d out of range", i, q.CorrectIndex)
		}
	}
	return resp.Questions, nil
}
