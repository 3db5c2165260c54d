package templates

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = []string{"outside_mission", "in_briefing", "mission_start", "area_1", "area_2", "area_3"}

func writePNG(t *testing.T, dir, name string, shade uint8) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: shade + uint8(x), G: uint8(y), B: shade, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want Classification
	}{
		{"indicator", "marker_area_2.png", Classification{Role: RoleIndicator, State: "area_2"}},
		{"indicator upper case", "Marker_In_Briefing.PNG", Classification{Role: RoleIndicator, State: "in_briefing"}},
		{"contraindicator", "area_3_bad_sandbags.png", Classification{Role: RoleContraindicator, State: "area_3"}},
		{"contraindicator wins over group", "area_3_bad_check_1.png", Classification{Role: RoleContraindicator, State: "area_3"}},
		{"check group", "area_1_check_2_left.png", Classification{Role: RoleCheckMember, State: "area_1", Group: 2}},
		{"multi digit group", "area_1_check_12.png", Classification{Role: RoleCheckMember, State: "area_1", Group: 12}},
		{"unrelated", "notes.png", Classification{Role: RoleOther}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.id, testTokens))
		})
	}
}

func TestLoadIndexesDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "marker_area_1.png", 10)
	writePNG(t, dir, "marker_outside_mission.png", 20)
	writePNG(t, dir, "area_1_bad_enemy.png", 30)
	writePNG(t, dir, "area_1_check_1_a.png", 40)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "macros.yaml"), []byte("macros: {}"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writePNG(t, filepath.Join(dir, "nested"), "marker_area_2.png", 50)

	store, err := Load(context.Background(), dir, Options{StateTokens: testTokens, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 4, store.Count())
	assert.Equal(t, []string{
		"area_1_bad_enemy.png",
		"area_1_check_1_a.png",
		"marker_area_1.png",
		"marker_outside_mission.png",
	}, store.IDs())

	indicators := store.Indicators()
	require.Len(t, indicators, 2)
	assert.Equal(t, "marker_area_1.png", indicators[0].ID)

	forArea := store.ForState("area_1")
	require.Len(t, forArea, 2)
	assert.Equal(t, RoleContraindicator, forArea[0].Role)
	assert.Equal(t, RoleCheckMember, forArea[1].Role)
	assert.Equal(t, 1, forArea[1].Group)
}

func TestLoadFailsOnCorruptImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "marker_area_1.png", 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker_area_2.png"), []byte("not a png"), 0644))

	_, err := Load(context.Background(), dir, Options{StateTokens: testTokens})

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, filepath.Join(dir, "marker_area_2.png"), loadErr.Path)
}

func TestLoadFailsOnMissingDirectory(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})

	var loadErr *LoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	store := NewStore()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	require.NoError(t, store.Register(&Template{ID: "a.png", Image: img}))
	assert.Error(t, store.Register(&Template{ID: "a.png", Image: img}))
	assert.Error(t, store.Register(&Template{ID: "", Image: img}))
	assert.Error(t, store.Register(&Template{ID: "b.png"}))
}

func TestLoadMarkers(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "marker-enter_briefing.png", 10)
	writePNG(t, dir, "Marker-Explore_Area_5.png", 20)
	writePNG(t, dir, "unrelated.png", 30)

	markers, err := LoadMarkers(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, markers, 2)
	assert.Equal(t, RoleMarker, markers["enter_briefing"].Role)
	assert.Contains(t, markers, "explore_area_5")
}
