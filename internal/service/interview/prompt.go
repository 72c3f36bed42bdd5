package interview

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/model/chat"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
)

// maxResumeChars bounds how much résumé text goes into the context.
const maxResumeChars = 5000

const analysisInstruction = "Analyze the following technical interview transcript.\n" +
	"Provide a performance report in strictly VALID JSON format (no markdown formatting).\n" +
	"The JSON must have these keys: 'technical_score' (1-10), 'communication_score' (1-10), " +
	"'problem_solving_score' (1-10), 'feedback' (string), 'strengths' (list of strings), 'weaknesses' (list of strings).\n\n"

// buildContext wraps the résumé text in the persona's interviewer instructions.
func buildContext(p persona.Persona, resumeText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an %s named '%s'. ", p.Title, p.Name)
	b.WriteString("You are interviewing a candidate based on their resume:\n\n")
	b.WriteString(truncateRunes(resumeText, maxResumeChars))
	b.WriteString("\n\n**Guidelines:**\n")
	for i, line := range p.Guidelines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
	}
	b.WriteString(p.Kickoff)
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// buildChatPrompt prefixes the session context, when there is one.
func buildChatPrompt(context, message string) string {
	if context == "" {
		return message
	}
	return "System Instruction: " + context + "\n\nUser: " + message
}

// formatTranscript renders one "ROLE: content" line per turn.
func formatTranscript(messages []chat.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, strings.ToUpper(string(msg.Role))+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func buildAnalysisPrompt(transcript string) string {
	return analysisInstruction + "Transcript:\n" + transcript
}
