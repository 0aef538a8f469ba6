package surveybuilder

import (
	"NYCU-SDC/survey-backend/internal/survey"
	"time"

	"github.com/google/uuid"
)

type Option func(*FactoryParams)

type AttributeParams struct {
	Type    survey.AttributeType
	Title   string
	Choices []string
}

type FactoryParams struct {
	Title      string
	ChoiceType survey.ChoiceType
	OwnerID    uuid.UUID
	VotingEnd  time.Time
	Choices    []string
	Attributes []AttributeParams
}

func WithTitle(title string) Option {
	return func(p *FactoryParams) { p.Title = title }
}

func WithOwner(ownerID uuid.UUID) Option {
	return func(p *FactoryParams) { p.OwnerID = ownerID }
}

func WithVotingEnd(votingEnd time.Time) Option {
	return func(p *FactoryParams) { p.VotingEnd = votingEnd }
}

func WithChoices(choices ...string) Option {
	return func(p *FactoryParams) { p.Choices = choices }
}

func WithAttribute(attributeType survey.AttributeType, title string, choices ...string) Option {
	return func(p *FactoryParams) {
		p.Attributes = append(p.Attributes, AttributeParams{Type: attributeType, Title: title, Choices: choices})
	}
}
