package invitation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/api"
)

const (
	tonesPath         = "/invitation-tones"
	mapPath           = "/invitation-map"
	imageGeneratePath = "/invitation-image-generate"
	imageModifyPath   = "/invitation-image-modify"
	designsPath       = "/invitation-designs"
	designGenPath     = "/invitations/design"
	threeDSubmitPath  = "/invitations/3d"
	threeDStatusPath  = "/invitations/3d/status"
)

var (
	// ErrCancelled is returned when a call timed out or was aborted.
	ErrCancelled = errors.New("invitation request cancelled")
	// ErrNoDesignImages is returned when design generation produced no images.
	ErrNoDesignImages = errors.New("design generation returned no images")
	// ErrMainImageRequired is returned when a 3-D job has no main photo.
	ErrMainImageRequired = errors.New("a main image is required")
	// ErrTooManyReferences is returned when a 3-D job has more than MaxReferenceImages references.
	ErrTooManyReferences = fmt.Errorf("at most %d reference images are allowed", MaxReferenceImages)
)

// Service calls the invitation endpoints as the signed-in user.
type Service struct {
	logger *zap.Logger
	client *api.Client
}

func NewService(logger *zap.Logger, client *api.Client) *Service {
	return &Service{logger: logger, client: client}
}

func (s *Service) call(ctx context.Context, endpoint string, opts api.Options, out any) error {
	res, err := s.client.Request(ctx, endpoint, opts, out)
	if err != nil {
		return err
	}
	if res.Cancelled {
		return ErrCancelled
	}
	return nil
}

// GenerateTones asks for wording suggestions for the given couple.
func (s *Service) GenerateTones(ctx context.Context, info BasicInfo) ([]ToneOption, error) {
	var env Envelope[json.RawMessage]
	if err := s.call(ctx, tonesPath, api.Options{Method: http.MethodPost, Body: info}, &env); err != nil {
		return nil, fmt.Errorf("generate tones: %w", err)
	}
	return decodeTones(env.Data)
}

// decodeTones accepts either a bare list or an object wrapping it under "tones".
func decodeTones(raw json.RawMessage) ([]ToneOption, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var list []ToneOption
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode tones: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Tones []ToneOption `json:"tones"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode tones: %w", err)
	}
	return wrapped.Tones, nil
}

// MapInfo geocodes a venue address.
func (s *Service) MapInfo(ctx context.Context, address string) (MapInfo, error) {
	var env Envelope[MapInfo]
	body := map[string]string{"address": address}
	if err := s.call(ctx, mapPath, api.Options{Method: http.MethodPost, Body: body}, &env); err != nil {
		return MapInfo{}, fmt.Errorf("map info: %w", err)
	}
	return env.Data, nil
}

// GenerateImage renders an invitation image and returns the raw response data.
func (s *Service) GenerateImage(ctx context.Context, req ImageGenerateRequest) (json.RawMessage, error) {
	var env Envelope[json.RawMessage]
	if err := s.call(ctx, imageGeneratePath, api.Options{Method: http.MethodPost, Body: req}, &env); err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	return env.Data, nil
}

// ModifyImage edits a previously generated image.
func (s *Service) ModifyImage(ctx context.Context, req ImageModifyRequest) (json.RawMessage, error) {
	var env Envelope[json.RawMessage]
	if err := s.call(ctx, imageModifyPath, api.Options{Method: http.MethodPost, Body: req}, &env); err != nil {
		return nil, fmt.Errorf("modify image: %w", err)
	}
	return env.Data, nil
}

func (s *Service) CreateDesign(ctx context.Context, in DesignInput) (Design, error) {
	var env Envelope[Design]
	if err := s.call(ctx, designsPath, api.Options{Method: http.MethodPost, Body: in}, &env); err != nil {
		return Design{}, fmt.Errorf("create design: %w", err)
	}
	return env.Data, nil
}

func (s *Service) UpdateDesign(ctx context.Context, id int64, body any) (Design, error) {
	var env Envelope[Design]
	if err := s.call(ctx, designPath(id), api.Options{Method: http.MethodPut, Body: body}, &env); err != nil {
		return Design{}, fmt.Errorf("update design %d: %w", id, err)
	}
	return env.Data, nil
}

func (s *Service) ListDesigns(ctx context.Context) ([]Design, error) {
	var env Envelope[[]Design]
	if err := s.call(ctx, designsPath, api.Options{}, &env); err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return env.Data, nil
}

func (s *Service) GetDesign(ctx context.Context, id int64) (Design, error) {
	var env Envelope[Design]
	if err := s.call(ctx, designPath(id), api.Options{}, &env); err != nil {
		return Design{}, fmt.Errorf("get design %d: %w", id, err)
	}
	return env.Data, nil
}

func designPath(id int64) string {
	return designsPath + "/" + strconv.FormatInt(id, 10)
}

// GenerateDesign uploads the draft's photos and details and stores the
// resulting image URLs back on the draft.
func (s *Service) GenerateDesign(ctx context.Context, draft *Draft) ([]string, error) {
	data := draft.Data()

	form := api.NewForm()
	if len(data.UserImages) > 0 {
		form.AddFile("weddingImage", data.UserImages[0].Filename, data.UserImages[0].Data)
	}
	for _, img := range data.StyleImages {
		form.AddFile("styleImages", img.Filename, img.Data)
	}
	if err := form.AddJSON("data", data.designPayload()); err != nil {
		return nil, err
	}

	var out GenerationResult
	opts := api.Options{Method: http.MethodPost, Body: form, Credentials: api.CredentialsInclude}
	if err := s.call(ctx, designGenPath, opts, &out); err != nil {
		return nil, fmt.Errorf("generate design: %w", err)
	}
	if len(out.Result2DImageURLs) == 0 {
		return nil, ErrNoDesignImages
	}

	draft.SetDesignResultImages(out.Result2DImageURLs)
	s.logger.Info("invitation.design_generated", zap.Int("images", len(out.Result2DImageURLs)))
	return out.Result2DImageURLs, nil
}

// SubmitThreeD validates the draft's 3-D photos and starts a generation job.
// On success the draft is left in JobPending, ready for a Poller.
func (s *Service) SubmitThreeD(ctx context.Context, draft *Draft) (GenerationResult, error) {
	td := draft.ThreeD()
	if len(td.MainImages) == 0 || len(td.MainImages[0].Data) == 0 {
		return GenerationResult{}, ErrMainImageRequired
	}
	if len(td.ReferenceImages) > MaxReferenceImages {
		return GenerationResult{}, ErrTooManyReferences
	}

	draft.Update(func(v *DraftData) {
		v.ThreeD.Status = JobSubmitted
		v.ThreeD.InvitationID = ""
		v.ThreeD.Error = ""
		v.ThreeD.Message = ""
		v.ThreeD.StartedAt = time.Now()
	})

	form := api.NewForm().AddFile("mainImage", td.MainImages[0].Filename, td.MainImages[0].Data)
	for _, img := range td.ReferenceImages {
		form.AddFile("optionalImages", img.Filename, img.Data)
	}

	var out GenerationResult
	opts := api.Options{Method: http.MethodPost, Body: form, Credentials: api.CredentialsInclude}
	if err := s.call(ctx, threeDSubmitPath, opts, &out); err != nil {
		status := JobFailed
		if errors.Is(err, ErrCancelled) {
			status = JobCanceled
		}
		draft.Update(func(v *DraftData) {
			v.ThreeD.Status = status
			v.ThreeD.Error = api.Message(err)
		})
		s.logger.Warn("invitation.threed_submit_failed", zap.Error(err))
		return GenerationResult{}, fmt.Errorf("submit 3-D job: %w", err)
	}

	draft.Update(func(v *DraftData) {
		if len(out.Result2DImageURLs) > 0 {
			v.ThreeD.Result2DImageURLs = append([]string(nil), out.Result2DImageURLs...)
			v.ThreeD.Assets = mergeAssets(v.ThreeD.Assets, nil, out.Result2DImageURLs[0])
		}
		v.ThreeD.Status = JobPending
	})

	s.logger.Info("invitation.threed_submitted",
		zap.String("server_status", out.Status),
		zap.Int("references", len(td.ReferenceImages)))
	return out, nil
}

// ThreeDStatus fetches the current job status once, bounded by timeout.
func (s *Service) ThreeDStatus(ctx context.Context, timeout time.Duration) (StatusResponse, error) {
	var out StatusResponse
	opts := api.Options{Method: http.MethodGet, Timeout: timeout, Credentials: api.CredentialsInclude}
	if err := s.call(ctx, threeDStatusPath, opts, &out); err != nil {
		return StatusResponse{}, err
	}
	return out, nil
}

// mergeAssets overlays next onto prev and sets model3dUrl when modelURL is non-empty.
func mergeAssets(prev, next map[string]any, modelURL string) map[string]any {
	out := make(map[string]any, len(prev)+len(next)+1)
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	if modelURL != "" {
		out["model3dUrl"] = modelURL
	}
	return out
}
