package orchestrator

import (
	"fmt"

	"github.com/maastricht-university/dialogue-arena/clients"
)

const topicSystemPrompt = "You are a creative assistant who invents conversation topics."

const topicUserPrompt = "Generate a creative and expressive conversation topic with clear and specific character settings. " +
	"Describe a scenario with two people (Speaker 1 and Speaker 2) in a specific setting, " +
	"discussing a topic, with both speakers having an ultimate goal to convince each other or achieve a certain goal. " +
	"The two speakers should be competing with each other, and the conversation should be intense and engaging. " +
	"For example, it can be two speakers debating whether a single income family should buy a house, " +
	"or two speakers negotiating a law proposal. " +
	"It should be in about 100 words."

const evaluationSystemPrompt = "You are an expert speech coach evaluating a conversation between two speakers. " +
	"Assess each speaker's performance on the following metrics:\n" +
	"1. Rhythm Control (flow and pace of speech)\n" +
	"2. Emotional Expression (conveying feeling and tone)\n" +
	"3. Pronunciation (clarity and correctness of speech sounds)\n" +
	"4. Semantic Clarity and Relevance (clarity of meaning and relevance of response)\n\n" +
	"5. Persuasiveness of the argument and the ability to convince the other speaker. " +
	"Provide detailed feedback for each speaker on each metric, then give a score out of 10 for each metric for each speaker. " +
	"Finally, provide a brief overall impression of each speaker's speaking style. " +
	"Format your response clearly, for example:\n\n" +
	"Speaker 1 – Rhythm Control: ... (Explanation) ... Score: X/10\n" +
	"Speaker 1 – Emotional Expression: ... Score: Y/10\n" +
	"... (and so on for Speaker 1, then Speaker 2) ..."

// turnSystemPrompt puts the shared topic ahead of the speaker's role.
func turnSystemPrompt(topic string, s Speaker, persona string) string {
	role := fmt.Sprintf("You are %s.", s.Label())
	if persona != "" {
		role += " " + persona
	}
	role += " Respond to the conversation in character."
	return fmt.Sprintf("Conversation Topic:\n%s\n\n%s", topic, role)
}

// turnUserParts asks for the next utterance and replays every earlier turn's
// audio, oldest first. The whole history is resent on every turn.
func turnUserParts(maxWords int, history [][]byte, format string) []clients.ContentPart {
	parts := []clients.ContentPart{clients.TextPart(fmt.Sprintf("Speak now. (no more than %d words)", maxWords))}
	if len(history) == 0 {
		return parts
	}
	parts = append(parts, clients.TextPart("Previous conversation audio:"))
	for _, a := range history {
		parts = append(parts, clients.AudioPart(a, format))
	}
	return parts
}

// rubricUserParts lays out header, audio and quoted transcript per turn.
func rubricUserParts(turns []Turn, format string) []clients.ContentPart {
	parts := make([]clients.ContentPart, 0, 3*len(turns))
	for _, t := range turns {
		parts = append(parts,
			clients.TextPart(fmt.Sprintf("%s, Turn %d:", t.Speaker.Label(), t.Index)),
			clients.AudioPart(t.Audio, format),
			clients.TextPart(fmt.Sprintf("(Transcript: \"%s\")", t.Transcript)),
		)
	}
	return parts
}
