package invitation

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MaxReferenceImages caps the optional reference photos sent with a 3-D job.
const MaxReferenceImages = 2

// JobStatus is the client-side state of a 3-D generation job.
type JobStatus string

const (
	JobIdle      JobStatus = "IDLE"
	JobSubmitted JobStatus = "SUBMITTED"
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobDone      JobStatus = "DONE"
	JobFailed    JobStatus = "FAILED"
	JobCanceled  JobStatus = "CANCELED"
)

// Terminal reports whether no further polling will change s.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed || s == JobCanceled
}

// Image is an in-memory upload.
type Image struct {
	Filename string
	Data     []byte
}

// LoadImage reads path into an Image named after its base name.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image %s: %w", path, err)
	}
	return Image{Filename: filepath.Base(path), Data: data}, nil
}

type Person struct {
	Name       string `json:"name"`
	FatherName string `json:"fatherName"`
	MotherName string `json:"motherName"`
}

type Wedding struct {
	HallName string `json:"hallName"`
	Address  string `json:"address"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// ThreeD tracks one 3-D generation job.
type ThreeD struct {
	Status            JobStatus
	InvitationID      string
	Assets            map[string]any
	Result2DImageURLs []string
	Message           string
	Error             string
	StartedAt         time.Time
	MainImages        []Image
	ReferenceImages   []Image
}

// ModelURL returns the 3-D model location, if the job produced one.
func (t ThreeD) ModelURL() string {
	if s, ok := t.Assets["model3dUrl"].(string); ok {
		return s
	}
	return ""
}

// DraftData is the content of the invitation wizard.
type DraftData struct {
	Groom             Person
	Bride             Person
	Wedding           Wedding
	ExtraMessage      string
	AdditionalRequest string
	Tone              string
	Frame             string
	StyleImages       []Image
	UserImages        []Image
	DesignImageURLs   []string
	ThreeD            ThreeD
}

func initialDraft() DraftData {
	return DraftData{ThreeD: ThreeD{Status: JobIdle}}
}

// Draft is the invitation wizard state. It is safe for concurrent use; the
// 3-D poller writes to it from its own goroutine.
type Draft struct {
	mu   sync.RWMutex
	data DraftData
}

func NewDraft() *Draft {
	return &Draft{data: initialDraft()}
}

// Data returns a copy of the draft.
func (d *Draft) Data() DraftData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneData(d.data)
}

// Update applies fn to the draft under its lock.
func (d *Draft) Update(fn func(*DraftData)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.data)
}

func (d *Draft) SetStyleImages(images []Image) {
	d.Update(func(v *DraftData) { v.StyleImages = append([]Image(nil), images...) })
}

func (d *Draft) SetUserImages(images []Image) {
	d.Update(func(v *DraftData) { v.UserImages = append([]Image(nil), images...) })
}

func (d *Draft) SetDesignResultImages(urls []string) {
	d.Update(func(v *DraftData) { v.DesignImageURLs = append([]string(nil), urls...) })
}

// SetThreeDMainImage sets the single main photo; nil clears it.
func (d *Draft) SetThreeDMainImage(img *Image) {
	d.Update(func(v *DraftData) {
		if img == nil {
			v.ThreeD.MainImages = nil
			return
		}
		v.ThreeD.MainImages = []Image{*img}
	})
}

// SetThreeDReferenceImages keeps the first MaxReferenceImages non-empty images.
func (d *Draft) SetThreeDReferenceImages(images []Image) {
	kept := make([]Image, 0, MaxReferenceImages)
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		kept = append(kept, img)
		if len(kept) == MaxReferenceImages {
			break
		}
	}
	d.Update(func(v *DraftData) { v.ThreeD.ReferenceImages = kept })
}

// ResetDesignStage clears style images, design results and job progress.
// The 3-D photos the user picked are kept.
func (d *Draft) ResetDesignStage() {
	d.Update(func(v *DraftData) {
		v.StyleImages = nil
		v.DesignImageURLs = nil
		main, refs := v.ThreeD.MainImages, v.ThreeD.ReferenceImages
		v.ThreeD = ThreeD{Status: JobIdle, MainImages: main, ReferenceImages: refs}
	})
}

// Reset returns the draft to its initial empty state.
func (d *Draft) Reset() {
	d.Update(func(v *DraftData) { *v = initialDraft() })
}

// ThreeD returns a copy of the 3-D job state.
func (d *Draft) ThreeD() ThreeD {
	return d.Data().ThreeD
}

func cloneData(v DraftData) DraftData {
	v.StyleImages = append([]Image(nil), v.StyleImages...)
	v.UserImages = append([]Image(nil), v.UserImages...)
	v.DesignImageURLs = append([]string(nil), v.DesignImageURLs...)
	v.ThreeD.MainImages = append([]Image(nil), v.ThreeD.MainImages...)
	v.ThreeD.ReferenceImages = append([]Image(nil), v.ThreeD.ReferenceImages...)
	v.ThreeD.Result2DImageURLs = append([]string(nil), v.ThreeD.Result2DImageURLs...)
	if v.ThreeD.Assets != nil {
		assets := make(map[string]any, len(v.ThreeD.Assets))
		for k, a := range v.ThreeD.Assets {
			assets[k] = a
		}
		v.ThreeD.Assets = assets
	}
	return v
}

// designPayload is the JSON part of a design generation request.
type designPayload struct {
	Groom             Person  `json:"groom"`
	Bride             Person  `json:"bride"`
	Wedding           Wedding `json:"wedding"`
	ExtraMessage      string  `json:"extraMessage"`
	AdditionalRequest string  `json:"additionalRequest"`
	Tone              *string `json:"tone"`
}

func (v DraftData) designPayload() designPayload {
	p := designPayload{
		Groom:             v.Groom,
		Bride:             v.Bride,
		Wedding:           v.Wedding,
		ExtraMessage:      v.ExtraMessage,
		AdditionalRequest: v.AdditionalRequest,
	}
	if v.Tone != "" {
		tone := v.Tone
		p.Tone = &tone
	}
	return p
}
