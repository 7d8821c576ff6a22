package invitation

import (
	"bytes"
	"encoding/json"
)

// Envelope is the {message, data} wrapper used by the invitation endpoints.
type Envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// BasicInfo is the couple and ceremony information used to suggest tones.
type BasicInfo struct {
	GroomName             string `json:"groom_name"`
	BrideName             string `json:"bride_name"`
	GroomFatherName       string `json:"groom_father_name,omitempty"`
	GroomMotherName       string `json:"groom_mother_name,omitempty"`
	BrideFatherName       string `json:"bride_father_name,omitempty"`
	BrideMotherName       string `json:"bride_mother_name,omitempty"`
	WeddingDate           string `json:"wedding_date"`
	WeddingTime           string `json:"wedding_time,omitempty"`
	WeddingLocation       string `json:"wedding_location"`
	WeddingLocationDetail string `json:"wedding_location_detail,omitempty"`
	AdditionalMessage     string `json:"additional_message,omitempty"`
	Requirements          string `json:"requirements,omitempty"`
}

// ToneOption is one suggested wording style.
type ToneOption struct {
	Tone            string `json:"tone"`
	Description     string `json:"description"`
	MainText        string `json:"main_text"`
	ParentsGreeting string `json:"parents_greeting"`
	WeddingInfo     string `json:"wedding_info"`
	Closing         string `json:"closing"`
}

// MapInfo is the geocoded venue.
type MapInfo struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
	MapURL           string  `json:"map_url,omitempty"`
	DirectionURL     string  `json:"direction_url,omitempty"`
}

// ModelType selects the image generation tier.
type ModelType string

const (
	ModelFree ModelType = "free"
	ModelPro  ModelType = "pro"
)

// ImageGenerateRequest is the body of POST /invitation-image-generate.
type ImageGenerateRequest struct {
	DesignID     int64     `json:"design_id"`
	SelectedTone string    `json:"selected_tone"`
	SelectedText string    `json:"selected_text"`
	Prompt       string    `json:"prompt"`
	ModelType    ModelType `json:"model_type"`
	BaseImageURL string    `json:"base_image_url,omitempty"`
}

// ImageModifyRequest is the body of POST /invitation-image-modify.
type ImageModifyRequest struct {
	DesignID           int64     `json:"design_id"`
	BaseImageURL       string    `json:"base_image_url"`
	ModificationPrompt string    `json:"modification_prompt"`
	ModelType          ModelType `json:"model_type"`
}

// DesignInput is the body of POST /invitation-designs.
type DesignInput struct {
	TemplateID            *int64          `json:"template_id,omitempty"`
	DesignData            json.RawMessage `json:"design_data"`
	QRCodeData            json.RawMessage `json:"qr_code_data,omitempty"`
	GroomName             string          `json:"groom_name,omitempty"`
	BrideName             string          `json:"bride_name,omitempty"`
	GroomFatherName       string          `json:"groom_father_name,omitempty"`
	GroomMotherName       string          `json:"groom_mother_name,omitempty"`
	BrideFatherName       string          `json:"bride_father_name,omitempty"`
	BrideMotherName       string          `json:"bride_mother_name,omitempty"`
	WeddingDate           string          `json:"wedding_date,omitempty"`
	WeddingTime           string          `json:"wedding_time,omitempty"`
	WeddingLocation       string          `json:"wedding_location,omitempty"`
	WeddingLocationDetail string          `json:"wedding_location_detail,omitempty"`
	MapAddress            string          `json:"map_address,omitempty"`
	AdditionalMessage     string          `json:"additional_message,omitempty"`
}

// Design is a stored invitation design.
type Design struct {
	ID              int64           `json:"id"`
	TemplateID      *int64          `json:"template_id,omitempty"`
	DesignData      json.RawMessage `json:"design_data,omitempty"`
	QRCodeData      json.RawMessage `json:"qr_code_data,omitempty"`
	GroomName       string          `json:"groom_name,omitempty"`
	BrideName       string          `json:"bride_name,omitempty"`
	WeddingDate     string          `json:"wedding_date,omitempty"`
	WeddingLocation string          `json:"wedding_location,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

// GenerationResult is returned by the multipart design and 3-D endpoints.
type GenerationResult struct {
	Status            string   `json:"status"`
	Result2DImageURLs []string `json:"result2dImageUrls"`
	Step              *int     `json:"step"`
	StepName          *string  `json:"stepName"`
	Progress          *float64 `json:"progress"`
}

// StatusResponse is the body of the 3-D job status endpoint.
type StatusResponse struct {
	Status            string         `json:"status"`
	InvitationID      ID             `json:"invitationId"`
	Result2DImageURLs []string       `json:"result2dImageUrls"`
	Assets            map[string]any `json:"assets"`
	Message           string         `json:"message"`
}

// ID is an identifier the server may send as either a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
