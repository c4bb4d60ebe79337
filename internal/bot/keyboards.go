package bot

import (
	"totem-quiz-bot/internal/app"
	"totem-quiz-bot/internal/domain"
)

func StartKeyboard() Keyboard {
	return Keyboard{{{Text: "🐾 Start the quiz", Data: ActionStartQuiz}}}
}

// QuestionKeyboard lays out one answer per row.
func QuestionKeyboard(q app.QuestionView) Keyboard {
	rows := make(Keyboard, len(q.Answers))
	for i, label := range q.Answers {
		rows[i] = []Button{{Text: label, Data: AnswerData(q.Index, i)}}
	}
	return rows
}

func ResultKeyboard(key domain.AnimalKey) Keyboard {
	return Keyboard{
		{{Text: "🔁 Try again", Data: ActionStartQuiz}},
		{{Text: "📢 Share", Data: ShareData(key)}},
		{{Text: "💬 Feedback", Data: ActionFeedback}},
		{{Text: "📞 Contact us", Data: ContactData(key)}},
	}
}
