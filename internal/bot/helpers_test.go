package bot

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"jordanella.com/seed-finder-go/internal/operator"
	"jordanella.com/seed-finder-go/pkg/templates"
)

// scriptedScorer scores templates by id, whatever the frame
type scriptedScorer struct {
	ids    map[*image.RGBA]string
	scores map[string]float64
	calls  []string
}

func newScriptedScorer() *scriptedScorer {
	return &scriptedScorer{ids: make(map[*image.RGBA]string), scores: make(map[string]float64)}
}

func (s *scriptedScorer) Score(_, tmpl *image.RGBA) float64 {
	id := s.ids[tmpl]
	s.calls = append(s.calls, id)
	return s.scores[id]
}

// newTestStore registers one small template per id, classified by name
func newTestStore(t *testing.T, scorer *scriptedScorer, ids ...string) *templates.Store {
	t.Helper()
	store := templates.NewStore()
	for _, id := range ids {
		c := templates.Classify(id, StateTokens())
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		scorer.ids[img] = id
		require.NoError(t, store.Register(&templates.Template{
			ID:    id,
			Path:  "assets/" + id,
			Role:  c.Role,
			State: c.State,
			Group: c.Group,
			Image: img,
		}))
	}
	return store
}

type stubFrames struct {
	captures int
	err      error
}

func (f *stubFrames) CaptureFrame() (*image.RGBA, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.captures++
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

type fakeMacros struct {
	ran      []string
	failOn   map[string]bool
	failFlag bool
}

func (m *fakeMacros) Run(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ran = append(m.ran, name)
	if m.failOn[name] {
		m.failFlag = true
	}
	return nil
}

func (m *fakeMacros) ExecutionFailed() bool { return m.failFlag }
func (m *fakeMacros) ClearFailure()         { m.failFlag = false }

type fakeDevice struct{ resets int }

func (d *fakeDevice) Reset() error {
	d.resets++
	return nil
}

// fakeOperator answers from scripted queues
type fakeOperator struct {
	decisions []operator.Decision
	confirms  []bool
	resumes   []bool

	notified        int
	confirmed       int
	resetsAtResume  []int
	device          *fakeDevice
	onNotifyChecked [][]State
	driver          *Driver
}

func (o *fakeOperator) Notify(context.Context, string) (operator.Decision, error) {
	o.notified++
	if o.driver != nil {
		o.onNotifyChecked = append(o.onNotifyChecked, append([]State(nil), o.driver.Attempt().CheckedStates...))
	}
	if len(o.decisions) == 0 {
		return operator.DecisionStop, nil
	}
	d := o.decisions[0]
	o.decisions = o.decisions[1:]
	return d, nil
}

func (o *fakeOperator) Confirm(context.Context, string) (bool, error) {
	o.confirmed++
	if len(o.confirms) == 0 {
		return true, nil
	}
	c := o.confirms[0]
	o.confirms = o.confirms[1:]
	return c, nil
}

func (o *fakeOperator) Resume(context.Context, string) (bool, error) {
	if o.device != nil {
		o.resetsAtResume = append(o.resetsAtResume, o.device.resets)
	}
	if len(o.resumes) == 0 {
		return false, nil
	}
	r := o.resumes[0]
	o.resumes = o.resumes[1:]
	return r, nil
}

func (o *fakeOperator) TableLocked(context.Context, string) error {
	return errors.New("not used")
}

// scriptedStrategy replays a fixed state sequence through the evaluator policy
type scriptedStrategy struct {
	*EvaluatorStrategy
	states   []State
	verdicts map[int]Verdict
	tick     int
}

func (s *scriptedStrategy) Classify(*image.RGBA) (State, error) {
	if s.tick >= len(s.states) {
		return StateUnknown, &ClassificationError{Reason: "script exhausted"}
	}
	st := s.states[s.tick]
	s.tick++
	return st, nil
}

func (s *scriptedStrategy) Evaluate(State, *image.RGBA) Evaluation {
	if v, ok := s.verdicts[s.tick-1]; ok {
		return Evaluation{Verdict: v}
	}
	return Evaluation{Verdict: VerdictContinue}
}

// interruptAt fires on the given poll numbers (1-based)
type interruptAt struct {
	polls int
	at    map[int]bool
}

func (i *interruptAt) Interrupted() bool {
	i.polls++
	return i.at[i.polls]
}
