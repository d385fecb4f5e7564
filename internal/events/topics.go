package events

import "time"

// TopicQuestionnaireSubmitted carries QuestionnaireSubmitted events.
const TopicQuestionnaireSubmitted = "questionnaire.submitted"

// QuestionnaireSubmitted is published after a questionnaire is stored.
type QuestionnaireSubmitted struct {
	QuestionnaireID string    `json:"questionnaireId"`
	UserID          string    `json:"userId"`
	SubmittedAt     time.Time `json:"submittedAt"`
}
