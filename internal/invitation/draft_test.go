package invitation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func img(name string) Image { return Image{Filename: name, Data: []byte(name)} }

func TestDraft_ReferenceImagesCapped(t *testing.T) {
	d := NewDraft()
	d.SetThreeDReferenceImages([]Image{img("a"), {Filename: "empty"}, img("b"), img("c")})

	refs := d.ThreeD().ReferenceImages
	require.Len(t, refs, MaxReferenceImages)
	assert.Equal(t, "a", refs[0].Filename)
	assert.Equal(t, "b", refs[1].Filename)
}

func TestDraft_MainImage(t *testing.T) {
	d := NewDraft()
	main := img("main")
	d.SetThreeDMainImage(&main)
	assert.Len(t, d.ThreeD().MainImages, 1)

	d.SetThreeDMainImage(nil)
	assert.Empty(t, d.ThreeD().MainImages)
}

func TestDraft_ResetDesignStageKeepsThreeDPhotos(t *testing.T) {
	d := NewDraft()
	main := img("main")
	d.SetThreeDMainImage(&main)
	d.SetThreeDReferenceImages([]Image{img("r")})
	d.SetStyleImages([]Image{img("s")})
	d.SetDesignResultImages([]string{"https://cdn/1.png"})
	d.Update(func(v *DraftData) {
		v.Groom.Name = "Minjun"
		v.ThreeD.Status = JobDone
		v.ThreeD.Result2DImageURLs = []string{"https://cdn/model.glb"}
	})

	d.ResetDesignStage()
	data := d.Data()

	assert.Empty(t, data.StyleImages)
	assert.Empty(t, data.DesignImageURLs)
	assert.Equal(t, JobIdle, data.ThreeD.Status)
	assert.Empty(t, data.ThreeD.Result2DImageURLs)
	assert.Len(t, data.ThreeD.MainImages, 1)
	assert.Len(t, data.ThreeD.ReferenceImages, 1)
	assert.Equal(t, "Minjun", data.Groom.Name, "basic info survives")
}

func TestDraft_Reset(t *testing.T) {
	d := NewDraft()
	d.Update(func(v *DraftData) { v.Tone = "warm" })
	d.SetUserImages([]Image{img("u")})

	d.Reset()
	assert.Equal(t, initialDraft(), d.Data())
}

func TestDraft_DataIsCopy(t *testing.T) {
	d := NewDraft()
	d.SetDesignResultImages([]string{"a"})
	d.Update(func(v *DraftData) { v.ThreeD.Assets = map[string]any{"k": "v"} })

	data := d.Data()
	data.DesignImageURLs[0] = "changed"
	data.ThreeD.Assets["k"] = "changed"

	assert.Equal(t, "a", d.Data().DesignImageURLs[0])
	assert.Equal(t, "v", d.ThreeD().Assets["k"])
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	im, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, Image{Filename: "photo.jpg", Data: []byte("jpeg")}, im)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}
