package flow

import "github.com/tvandinther/themedist/pkg/deploy"

type Flow struct {
	Strategies *Strategies
	Processors *Processors
}

type Strategies struct {
	Build          deploy.Builder
	FileCopy       deploy.FileCopier
	VersionControl deploy.VersionControl // nil in directory-only mode
	CreateReview   deploy.Reviewer       // optional
}

type Processors struct {
	Validators []deploy.Validator
}

func New(strategies *Strategies) *Flow {
	return &Flow{
		Strategies: strategies,
		Processors: &Processors{
			Validators: make([]deploy.Validator, 0),
		},
	}
}

func (f *Flow) AddValidator(v deploy.Validator) {
	f.Processors.Validators = append(f.Processors.Validators, v)
}
