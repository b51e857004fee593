package ingest

import (
	"errors"
	"fmt"
)

// Stage names a step of the run, used to report where it failed.
type Stage string

const (
	StageConfig          Stage = "config"
	StageFetch           Stage = "fetch"
	StageImages          Stage = "images"
	StageLoadRecipes     Stage = "load recipes"
	StageLoadIngredients Stage = "load ingredients"
	StageLoadRecipeLinks Stage = "load recipe ingredients"
)

var (
	ErrMissingAppKey = errors.New("EDAMAM_APP_KEY is not set")

	// ErrDone is returned by a page source once the walk is over.
	ErrDone = errors.New("no more pages")
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}
