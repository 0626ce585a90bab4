package validator

import (
	"fmt"

	"github.com/visionhub-hq/onboarding-service/internal/models"
)

// ValidateModuleContent enforces the authoring invariants that struct tags
// cannot express: exactly one correct option per question. Returns every
// violation at once so the author fixes the form in a single pass.
func (v *Validator) ValidateModuleContent(questions []QuestionRequest) ValidationErrors {
	var errs ValidationErrors

	for i, q := range questions {
		correct := 0
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != models.CorrectPerQuestion {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].options", i),
				Message: fmt.Sprintf("exactly %d option must be marked correct, got %d", models.CorrectPerQuestion, correct),
				Value:   correct,
				Rule:    "single_correct_option",
			})
		}
		if len(q.Options) != models.OptionsPerQuestion {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].options", i),
				Message: fmt.Sprintf("exactly %d options are required, got %d", models.OptionsPerQuestion, len(q.Options)),
				Value:   len(q.Options),
				Rule:    "option_count",
			})
		}
	}
	return errs
}

// ValidateQuizSelections checks a submission against the module's question
// set: one selection per question, no unknown questions, and every selected
// option belonging to its claimed question.
func (v *Validator) ValidateQuizSelections(module *models.TrainingModule, answers []AnswerSelection) ValidationErrors {
	var errs ValidationErrors

	optionsByQuestion := make(map[uint]map[uint]bool, len(module.Questions))
	for _, q := range module.Questions {
		opts := make(map[uint]bool, len(q.Options))
		for _, o := range q.Options {
			opts[o.ID] = true
		}
		optionsByQuestion[q.ID] = opts
	}

	seen := make(map[uint]bool, len(answers))
	for i, sel := range answers {
		opts, ok := optionsByQuestion[sel.QuestionID]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "question does not belong to this module",
				Value:   sel.QuestionID,
				Rule:    "unknown_question",
			})
			continue
		}
		if seen[sel.QuestionID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].question_id", i),
				Message: "duplicate selection for question",
				Value:   sel.QuestionID,
				Rule:    "duplicate_selection",
			})
			continue
		}
		seen[sel.QuestionID] = true

		if !opts[sel.OptionID] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("answers[%d].option_id", i),
				Message: "option does not belong to the claimed question",
				Value:   sel.OptionID,
				Rule:    "foreign_option",
			})
		}
	}

	for _, q := range module.Questions {
		if !seen[q.ID] {
			errs = append(errs, ValidationError{
				Field:   "answers",
				Message: fmt.Sprintf("missing selection for question %d", q.ID),
				Value:   q.ID,
				Rule:    "missing_selection",
			})
		}
	}
	return errs
}
