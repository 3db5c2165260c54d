package ledger

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jordanella.com/seed-finder-go/internal/bot"
	"jordanella.com/seed-finder-go/internal/cv"
)

// noise returns a deterministic pseudo-random image
func noise(w, h int, seed uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	state := seed*2654435761 + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			state ^= state << 13
			state ^= state >> 17
			state ^= state << 5
			img.Set(x, y, color.RGBA{uint8(state), uint8(state >> 8), uint8(state >> 16), 255})
		}
	}
	return img
}

func writeBMP(t *testing.T, dir, name string, img *image.RGBA) {
	t.Helper()
	require.NoError(t, cv.WriteBMP(filepath.Join(dir, name), img))
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

var fullFrame = cv.ScorerFunc(cv.Score)

func TestLoadCatalog_NextIndexIsMaxPlusOne(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "area_2-0.bmp", noise(16, 12, 1))
	writeBMP(t, dir, "area_2-3.bmp", noise(16, 12, 2))
	writeBMP(t, dir, "area_3-1.bmp", noise(16, 12, 3))
	writeBMP(t, dir, "macro_mistake_1.bmp", noise(16, 12, 4))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results.csv"), []byte("area_2\n"), 0644))

	c, err := LoadCatalog(context.Background(), dir, DefaultAreas)
	require.NoError(t, err)

	assert.Equal(t, 4, c.NextIndex("area_2"))
	assert.Equal(t, 2, c.NextIndex("area_3"))
	assert.Equal(t, 0, c.NextIndex("area_4"))
	assert.Len(t, c.Entries("area_2"), 2)
	assert.Len(t, c.Mistakes(), 1)
	assert.Equal(t, 3, c.Len())
}

func TestLoadCatalog_IndexNotReusedAfterRemoval(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "area_5-0.bmp", noise(8, 8, 1))
	writeBMP(t, dir, "area_5-1.bmp", noise(8, 8, 2))
	require.NoError(t, os.Remove(filepath.Join(dir, "area_5-0.bmp")))

	c, err := LoadCatalog(context.Background(), dir, DefaultAreas)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NextIndex("area_5"))

	e, err := c.Add("area_5", noise(8, 8, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, e.Index)
	assert.FileExists(t, filepath.Join(dir, "area_5-2.bmp"))
}

func TestCatalog_AddRejectsUntrackedArea(t *testing.T) {
	c := NewCatalog(t.TempDir(), DefaultAreas)
	_, err := c.Add("area_1", noise(4, 4, 1))
	require.Error(t, err)
}

func newTestLedger(t *testing.T, dir string) *Ledger {
	t.Helper()
	c, err := LoadCatalog(context.Background(), dir, DefaultAreas)
	require.NoError(t, err)
	results := NewResultsTable(filepath.Join(dir, "results.csv"), DefaultAreas, nil)
	return New(c, results, fullFrame, 0)
}

func TestLedger_FirstFrameRegistersThenDedups(t *testing.T) {
	dir := t.TempDir()
	l := newTestLedger(t, dir)
	frame := noise(20, 16, 7)

	obs, err := l.Evaluate("area_2", frame)
	require.NoError(t, err)
	assert.True(t, obs.New)
	assert.Equal(t, 0, obs.Index)
	assert.FileExists(t, filepath.Join(dir, "area_2-0.bmp"))
	files := countFiles(t, dir)

	l.Refresh()
	repeat := image.NewRGBA(frame.Rect)
	copy(repeat.Pix, frame.Pix)

	obs, err = l.Evaluate("area_2", repeat)
	require.NoError(t, err)
	assert.False(t, obs.New)
	assert.Equal(t, 0, obs.Index)
	assert.InDelta(t, 1.0, obs.Confidence, 1e-9)
	assert.Equal(t, files, countFiles(t, dir))
	assert.Equal(t, map[string]int{"area_2": 0}, l.Seen())

	obs, err = l.Evaluate("area_2", noise(20, 16, 8))
	require.NoError(t, err)
	assert.True(t, obs.New)
	assert.Equal(t, 1, obs.Index)
}

func TestLedger_SurvivesReload(t *testing.T) {
	dir := t.TempDir()
	frame := noise(20, 16, 11)

	_, err := newTestLedger(t, dir).Evaluate("area_4", frame)
	require.NoError(t, err)

	obs, err := newTestLedger(t, dir).Evaluate("area_4", frame)
	require.NoError(t, err)
	assert.False(t, obs.New)
	assert.Equal(t, 0, obs.Index)
}

func TestLedger_MistakeTemplatesCheckedFirst(t *testing.T) {
	dir := t.TempDir()
	mistake := noise(20, 16, 5)
	writeBMP(t, dir, "area_3-0.bmp", mistake)
	writeBMP(t, dir, "macro_mistake_lobby.bmp", mistake)

	l := newTestLedger(t, dir)
	obs, err := l.Evaluate("area_3", mistake)
	require.NoError(t, err)
	assert.True(t, obs.Mistake)
	assert.True(t, l.Failed())
	assert.Empty(t, l.Seen())

	l.Refresh()
	assert.False(t, l.Failed())
}

func TestLedger_TiesResolveToLowestIndex(t *testing.T) {
	dir := t.TempDir()
	img := noise(12, 12, 9)
	writeBMP(t, dir, "area_2-0.bmp", img)
	writeBMP(t, dir, "area_2-1.bmp", img)

	obs, err := newTestLedger(t, dir).Evaluate("area_2", img)
	require.NoError(t, err)
	assert.Equal(t, 0, obs.Index)
	assert.Equal(t, 1, obs.Ties)
}

func TestResultsTable_Golden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	ctx := context.Background()

	require.NoError(t, NewResultsTable(path, DefaultAreas, nil).Append(ctx, map[string]int{"area_2": 0, "area_3": 0, "area_4": 0, "area_5": 0}))

	table := NewResultsTable(path, DefaultAreas, nil)
	require.NoError(t, table.Append(ctx, map[string]int{"area_2": 1, "area_5": 0}))
	require.NoError(t, table.Append(ctx, map[string]int{"area_3": 2, "area_4": 1}))
	assert.Equal(t, 2, table.Written())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "results", data)
}

type countingPrompt struct{ calls int }

func (p *countingPrompt) TableLocked(context.Context, string) error {
	p.calls++
	return nil
}

func TestResultsTable_LockedFileRetriesAfterPrompt(t *testing.T) {
	saved := lockErrnos
	t.Cleanup(func() { lockErrnos = saved })
	sharing := syscall.Errno(32)
	lockErrnos = []syscall.Errno{sharing}

	tests := []struct {
		name string
		err  error
	}{
		{"permission denied", fs.ErrPermission},
		{"sharing violation", sharing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "results.csv")
			require.NoError(t, os.WriteFile(path, []byte("area_2,area_3,area_4,area_5\n"), 0644))

			prompt := &countingPrompt{}
			table := NewResultsTable(path, DefaultAreas, prompt)

			locked := 2
			table.openFile = func(name string, flag int, perm os.FileMode) (*os.File, error) {
				// the exclusive create still reports the existing file
				if flag&os.O_EXCL != 0 {
					return os.OpenFile(name, flag, perm)
				}
				if locked > 0 {
					locked--
					return nil, &fs.PathError{Op: "open", Path: name, Err: tt.err}
				}
				return os.OpenFile(name, flag, perm)
			}

			require.NoError(t, table.Append(context.Background(), map[string]int{"area_2": 3}))
			assert.Equal(t, 2, prompt.calls)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "area_2,area_3,area_4,area_5\n3,,,\n", string(data))
		})
	}
}

func TestResultsTable_LockedFileOnCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	prompt := &countingPrompt{}
	table := NewResultsTable(path, DefaultAreas, prompt)

	locked := 1
	table.openFile = func(name string, flag int, perm os.FileMode) (*os.File, error) {
		if locked > 0 {
			locked--
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
		}
		return os.OpenFile(name, flag, perm)
	}

	require.NoError(t, table.Append(context.Background(), map[string]int{"area_2": 3}))
	assert.Equal(t, 1, prompt.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "area_2,area_3,area_4,area_5\n3,,,\n", string(data))
}

func TestIsLocked(t *testing.T) {
	assert.True(t, isLocked(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}))
	assert.False(t, isLocked(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}))
	for _, errno := range lockErrnos {
		assert.True(t, isLocked(&fs.PathError{Op: "open", Path: "x", Err: errno}), errno.Error())
	}
}

func TestResultsTable_OtherErrorsReturned(t *testing.T) {
	table := NewResultsTable(filepath.Join(t.TempDir(), "missing", "results.csv"), DefaultAreas, &countingPrompt{})
	err := table.Append(context.Background(), map[string]int{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrPermission))
}

// scriptedMacros runs instantly and remembers the last macro for the frame source
type scriptedMacros struct {
	ran      []string
	last     string
	failOn   map[string]int // macro -> attempt number on which it fails
	attempt  int
	failFlag bool
}

func (m *scriptedMacros) Run(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == bot.MacroAdvanceSeed {
		m.attempt++
	}
	m.ran = append(m.ran, name)
	m.last = name
	if n, ok := m.failOn[name]; ok && n == m.attempt {
		m.failFlag = true
	}
	return nil
}

func (m *scriptedMacros) ExecutionFailed() bool { return m.failFlag }
func (m *scriptedMacros) ClearFailure()         { m.failFlag = false }

// areaFrames shows the same screen per area on every attempt
type areaFrames struct {
	macros *scriptedMacros
	images map[string]*image.RGBA
}

func (f *areaFrames) CaptureFrame() (*image.RGBA, error) {
	img, ok := f.images[f.macros.last]
	if !ok {
		return nil, errors.New("no screen for " + f.macros.last)
	}
	return img, nil
}

type resetCounter struct{ n int }

func (r *resetCounter) Reset() error { r.n++; return nil }

type scriptedResume struct {
	answers      []bool
	resetsAtCall []int
	device       *resetCounter
}

func (s *scriptedResume) Resume(context.Context, string) (bool, error) {
	s.resetsAtCall = append(s.resetsAtCall, s.device.n)
	if len(s.answers) == 0 {
		return false, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

type pollInterrupter struct {
	polls int
	at    int
}

func (p *pollInterrupter) Interrupted() bool {
	p.polls++
	return p.polls == p.at
}

func newRunnerFixture(t *testing.T, maxAttempts int) (*Runner, *scriptedMacros, *resetCounter, *scriptedResume, string) {
	t.Helper()
	dir := t.TempDir()
	l := newTestLedger(t, dir)

	macros := &scriptedMacros{failOn: map[string]int{}}
	frames := &areaFrames{macros: macros, images: map[string]*image.RGBA{}}
	for i, area := range DefaultAreas {
		frames.images[ExploreMacro(area)] = noise(16, 16, uint32(100+i))
	}
	device := &resetCounter{}
	resume := &scriptedResume{device: device}

	r, err := NewRunner(RunnerConfig{
		Ledger:      l,
		Macros:      macros,
		Frames:      frames,
		Device:      device,
		Operator:    resume,
		MaxAttempts: maxAttempts,
	})
	require.NoError(t, err)
	return r, macros, device, resume, dir
}

func TestRunner_LogsOneRowPerCompletedAttempt(t *testing.T) {
	r, macros, device, _, dir := newRunnerFixture(t, 3)

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 3, r.Logged())
	assert.Equal(t, 1, device.n)
	assert.Equal(t, []string{
		"advance_rng_seed", "enter_briefing", "enter_mission",
		"explore_area_5", "explore_area_4", "explore_area_2", "explore_area_3",
	}, macros.ran[:7])

	data, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	assert.Equal(t, "area_2,area_3,area_4,area_5\n0,0,0,0\n0,0,0,0\n0,0,0,0\n", string(data))
	assert.Equal(t, 4, countFiles(t, dir)-1, "one catalog image per area plus the results file")
}

func TestRunner_MacroFailureSkipsLog(t *testing.T) {
	r, macros, _, _, dir := newRunnerFixture(t, 2)
	macros.failOn["explore_area_4"] = 1

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 2, r.Attempts())
	assert.Equal(t, 1, r.Logged())
	// first attempt stops right after the failed macro
	assert.Equal(t, "explore_area_4", macros.ran[4])
	assert.Equal(t, "advance_rng_seed", macros.ran[5])

	data, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	assert.Equal(t, "area_2,area_3,area_4,area_5\n0,0,0,0\n", string(data))
}

func TestRunner_InterruptResetsThenPrompts(t *testing.T) {
	r, macros, device, resume, _ := newRunnerFixture(t, 0)
	r.cfg.Interrupter = &pollInterrupter{at: 3}

	err := r.Run(context.Background())
	require.ErrorIs(t, err, bot.ErrTerminated)

	assert.Equal(t, []int{1}, resume.resetsAtCall)
	assert.Equal(t, []string{"advance_rng_seed", "enter_briefing"}, macros.ran)
	assert.Equal(t, 0, r.Logged())
	assert.Equal(t, 2, device.n)
}

func TestRunner_InterruptResume(t *testing.T) {
	r, _, _, resume, _ := newRunnerFixture(t, 2)
	r.cfg.Interrupter = &pollInterrupter{at: 2}
	resume.answers = []bool{true}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, r.Attempts())
	assert.Equal(t, 1, r.Logged())
}

func TestNewRunner_RejectsUntrackedArea(t *testing.T) {
	l := New(NewCatalog(t.TempDir(), DefaultAreas), nil, fullFrame, 0)
	_, err := NewRunner(RunnerConfig{
		Ledger:       l,
		Macros:       &scriptedMacros{},
		Frames:       &areaFrames{},
		Device:       &resetCounter{},
		Operator:     &scriptedResume{},
		ExploreOrder: []string{"area_1"},
	})
	require.Error(t, err)
}
