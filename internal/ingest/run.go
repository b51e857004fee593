package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recipehub/pkg/models"
)

type State string

const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateValidating   State = "validating"
	StateDownloading  State = "downloading"
	StateAccumulating State = "accumulating"
	StateSkipping     State = "skipping"
	StateLoading      State = "loading"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

type Stats struct {
	Pages        int
	Records      int
	Accepted     int
	Rejected     int
	ImagesOK     int
	ImagesFailed int
}

// IngestionRun owns everything accumulated by one pipeline run.
type IngestionRun struct {
	State    State
	Err      error
	Stats    Stats
	Registry *Registry

	Recipes     []models.Recipe
	Ingredients []models.Ingredient
	Links       []models.RecipeIngredient

	history []State
}

func NewIngestionRun(reg *Registry) *IngestionRun {
	if reg == nil {
		reg = NewRegistry()
	}
	return &IngestionRun{State: StateIdle, Registry: reg, history: []State{StateIdle}}
}

// History lists every state the run entered, in order, collapsing repeats.
func (r *IngestionRun) History() []State {
	return append([]State(nil), r.history...)
}

func (r *IngestionRun) enter(s State) {
	r.State = s
	if r.history[len(r.history)-1] != s {
		r.history = append(r.history, s)
	}
}

func (r *IngestionRun) fail(err error) error {
	r.Err = err
	r.enter(StateFailed)
	return err
}

// Accumulate turns a validated candidate into a recipe, its new ingredients
// and one join row per ingredient line.
func (r *IngestionRun) Accumulate(c Candidate, recipeID string, files map[string]string, now time.Time) {
	r.Recipes = append(r.Recipes, models.Recipe{
		ID:              recipeID,
		Name:            c.Name,
		Images:          files,
		IngredientLines: c.IngredientLines,
		Servings:        c.Servings,
		DietLabels:      c.DietLabels,
		HealthLabels:    c.HealthLabels,
		Calories:        c.Calories,
		Nutrients:       c.Nutrients,
		DailyNutrients:  c.DailyNutrients,
		Cautions:        c.Cautions,
		Link:            c.Link,
		CreatedAt:       now,
	})

	for _, ing := range c.Ingredients {
		id, created := r.Registry.Resolve(ing.Food, ing.Category)
		if created != nil {
			r.Ingredients = append(r.Ingredients, *created)
		}
		r.Links = append(r.Links, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: id,
			Text:         ing.Text,
			Quantity:     ing.Quantity,
			Measure:      ing.Measure,
		})
	}
}

// PageSource yields pages until it returns ErrDone.
type PageSource interface {
	Next(ctx context.Context) (*Page, error)
	Remaining() int
}

type Pipeline struct {
	Pages  PageSource
	Images *ImageFetcher
	Loader Loader
	Log    zerolog.Logger

	Now   func() time.Time
	NewID func() string
}

type pending struct {
	candidate Candidate
	id        string
	files     map[string]string
}

// Run walks every page, then bulk-loads the result. Page fetch errors,
// cancellation and load errors end the run Failed as a *StageError.
func (p *Pipeline) Run(ctx context.Context, run *IngestionRun) error {
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	for {
		run.enter(StateFetching)
		page, err := p.Pages.Next(ctx)
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			return run.fail(stageErr(StageFetch, err))
		}
		run.Stats.Pages++
		pagesTotal.Inc()

		var accepted []pending
		var jobs []ImageJob
		for i := range page.Hits {
			run.Stats.Records++
			run.enter(StateValidating)

			raw := &page.Hits[i].Recipe
			c, ok := Validate(raw)
			if !ok {
				run.enter(StateSkipping)
				run.Stats.Rejected++
				recordsTotal.WithLabelValues("rejected").Inc()
				p.Log.Debug().Strs("missing", MissingFields(raw)).Msg("record rejected")
				continue
			}
			recordsTotal.WithLabelValues("accepted").Inc()

			files, js := p.Images.Assign(c.ImageURLs)
			accepted = append(accepted, pending{candidate: c, id: newID(), files: files})
			jobs = append(jobs, js...)
		}

		if len(accepted) > 0 {
			run.enter(StateDownloading)
			ok, failed, err := p.Images.FetchAll(ctx, jobs)
			if err != nil {
				return run.fail(stageErr(StageImages, err))
			}
			run.Stats.ImagesOK += ok
			run.Stats.ImagesFailed += failed

			run.enter(StateAccumulating)
			for _, a := range accepted {
				run.Accumulate(a.candidate, a.id, a.files, now())
				run.Stats.Accepted++
			}
		}

		p.Log.Info().
			Int("page", run.Stats.Pages).
			Int("processed", run.Stats.Records).
			Int("remaining", p.Pages.Remaining()).
			Msgf("Processed %d recipes. Remaining: %d", run.Stats.Records, p.Pages.Remaining())
	}

	run.enter(StateLoading)
	if err := p.Loader.InsertRecipes(ctx, run.Recipes); err != nil {
		return run.fail(stageErr(StageLoadRecipes, err))
	}
	if err := p.Loader.InsertIngredients(ctx, run.Ingredients); err != nil {
		return run.fail(stageErr(StageLoadIngredients, err))
	}
	if err := p.Loader.InsertRecipeIngredients(ctx, run.Links); err != nil {
		return run.fail(stageErr(StageLoadRecipeLinks, err))
	}

	run.enter(StateDone)
	p.Log.Info().
		Int("pages", run.Stats.Pages).
		Int("accepted", run.Stats.Accepted).
		Int("rejected", run.Stats.Rejected).
		Int("ingredients", len(run.Ingredients)).
		Int("images_ok", run.Stats.ImagesOK).
		Int("images_failed", run.Stats.ImagesFailed).
		Msg("ingestion finished")
	return nil
}
