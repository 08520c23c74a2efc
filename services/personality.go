package services

import (
	"fmt"
	"strings"
)

// Personality describes a debater's argumentative style and stance.
type Personality struct {
	Type       string // logical, emotional, philosophical
	Stance     string // pro, con, neutral
	Traits     string
	Style      string
	Directives string
}

// GetPersonality returns the prompt parameters for a personality type.
// Unknown types fall back to a balanced logical debater.
func GetPersonality(personalityType, stance string) Personality {
	switch strings.ToLower(personalityType) {
	case "emotional":
		return Personality{
			Type:   "emotional",
			Stance: stance,
			Traits: `- You appeal to values, lived experience, and human impact
- You use vivid stories and concrete examples over abstract data
- You speak with warmth and conviction`,
			Style: `- Open with what is at stake for real people
- Answer cold statistics with the human story behind them
- Close each argument with an appeal the audience can feel`,
			Directives: "Stay constructive; passion never becomes hostility.",
		}
	case "philosophical":
		return Personality{
			Type:   "philosophical",
			Stance: stance,
			Traits: `- You examine definitions, assumptions, and first principles
- You draw on ethical frameworks and thought experiments
- You expose hidden premises in the opponent's reasoning`,
			Style: `- Question what key terms in the topic actually mean
- Trace each claim back to the principle it rests on
- Use analogies and counterexamples to test generalizations`,
			Directives: "Prefer clarifying the question over winning the point.",
		}
	default:
		return Personality{
			Type:   "logical",
			Stance: stance,
			Traits: `- You rely on data, statistics, and documented evidence
- You build structured arguments: premise, inference, conclusion
- You point out logical flaws and weak evidence in opposing claims`,
			Style: `- State your claim, then the evidence, then the inference
- Cite studies or data where possible
- Rebut by naming the specific fallacy or gap`,
			Directives: "Stay objective; argue the facts, not the person.",
		}
	}
}

func stanceInstruction(stance string) string {
	switch strings.ToLower(stance) {
	case "pro":
		return "You argue in favor of the topic."
	case "con":
		return "You argue against the topic."
	default:
		return "You take a neutral position and give a balanced analysis."
	}
}

// BuildDebatePrompt assembles the full prompt for one turn: personality
// framing plus the turn-specific ask. The first turn asks for an opening
// statement; later turns respond to the opponent's latest message.
func BuildDebatePrompt(p Personality, name, topic, opponentMessage string, turnNumber int) string {
	system := fmt.Sprintf(`You are %s, a debater with a %s argumentative style.

Your characteristics:
%s

Your debate style:
%s

Your position:
%s

Ground rules:
- Keep the debate constructive and respect the opponent's position
- Explain complex ideas plainly
- %s`,
		name, p.Type, p.Traits, p.Style, stanceInstruction(p.Stance), p.Directives)

	if opponentMessage == "" {
		return fmt.Sprintf(`%s

Debate topic: %s

This is the first turn of the debate. State your opening argument on the
topic from your position. Make it logical and persuasive.`, system, topic)
	}

	return fmt.Sprintf(`%s

Debate topic: %s

Opponent's argument: %s

This is your turn %d. Respond to the opponent's argument from your
position. Make it logical and persuasive.`, system, topic, opponentMessage, turnNumber)
}
