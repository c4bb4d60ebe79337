package bot

import (
	"errors"
	"fmt"
	"strings"

	"totem-quiz-bot/internal/app"
	"totem-quiz-bot/internal/domain"
)

const welcomeText = "🐺 Welcome to the *Totem Animal* quiz!\n\n" +
	"✋😃 Hi! I'm the zoo's bot. Take a short quiz and find out which animal is most like you.\n\n" +
	"*How to play:*\n" +
	"1. Press \"Start the quiz\"\n" +
	"2. Answer the questions by tapping an option\n" +
	"3. Meet your totem animal and share the result with friends!\n\n" +
	"🤗 Maybe you'll even want to look after your totem animal at the zoo?\n\n" +
	"For now, let's start small: find yourself in the animal world 🐾"

const (
	resultSendFailedText = "⚠️ Could not send the result. Please try again later."
	noAnswersText        = "⚠️ Could not determine your totem animal. Please try again."
	unknownAnimalText    = "⚠️ Something went wrong while determining your totem animal."
	feedbackPromptText   = "💌 Share your impressions: what did you like, and what could be better?"
	feedbackThanksText   = "Thank you for your feedback! ❤️"
	feedbackFailedText   = "⚠️ Could not save your feedback. Please try again later."
	contactSentText      = "📧 Your request has been sent to the zoo staff! We'll get in touch with you soon."
	idleHintText         = "Send /start to take the quiz."
	defaultBotUsername   = "MZoo_Bot"
)

func questionText(q app.QuestionView) string {
	return fmt.Sprintf("❓ Question %d/%d:\n%s", q.Index+1, q.Total, q.Prompt)
}

func resultCaption(profile domain.AnimalProfile, guardianshipLink string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n_%s_\n\n", profile.Name, profile.Description)
	b.WriteString("🐾 You've finished the quiz and met your totem animal. " +
		"Now imagine you could become its real supporter.\n\n")
	b.WriteString("🌿 At the zoo anyone can become a guardian, not just of any animal, " +
		"but of the one closest to them in spirit.\n\n")
	b.WriteString("You can:\n" +
		"• become a guardian of *your own totem* animal,\n" +
		"• choose any other of the zoo's species,\n" +
		"• gift a guardianship or donate on behalf of a company.\n\n")
	b.WriteString("🫶 It's a chance to be part of something bigger.")
	if guardianshipLink != "" {
		fmt.Fprintf(&b, "\n\n[💚 More about the guardianship programme](%s)", guardianshipLink)
	}
	return b.String()
}

func shareText(botUsername string) string {
	return "📲 To share your result:\n" +
		"1. Tap the message above.\n" +
		"2. Tap \"Forward\".\n" +
		"3. Pick a chat or a contact.\n" +
		"4. Or copy the bot link and send it in any messenger:\n" +
		"https://t.me/" + escapeMarkdown(botUsername)
}

func unknownTestAnimalText(key domain.AnimalKey, known []domain.AnimalKey) string {
	names := make([]string, len(known))
	for i, k := range known {
		names[i] = string(k)
	}
	return fmt.Sprintf("⚠️ Animal '%s' not found. Try one of:\n%s", key, strings.Join(names, ", "))
}

// transitionNotice is the short callback answer for a rejected answer.
func transitionNotice(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotStarted):
		return "This quiz is over. Press /start to play again."
	case errors.Is(err, domain.ErrSessionCompleted):
		return "You've already finished the quiz."
	case errors.Is(err, domain.ErrStaleQuestion):
		return "That question is no longer active."
	case errors.Is(err, domain.ErrAnswerOutOfRange):
		return "Unknown answer option."
	default:
		return "Please try again."
	}
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "_", `\_`)
}
