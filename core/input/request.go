package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"music-relay/core/models"

	"github.com/samber/lo"
)

// Request is the union of the two client input shapes accepted by /generate.
// Shape A carries prompt/lyrics directly; shape B carries a free-text input
// plus style modifiers.
type Request struct {
	// Shape A
	Prompt      string `json:"prompt"`
	Lyrics      string `json:"lyrics"`
	ImageURL    string `json:"imageUrl"`
	Bitrate     Number `json:"bitrate"`
	SampleRate  Number `json:"sample_rate"`
	AudioFormat string `json:"audio_format"`

	// Shape B
	Input           string `json:"input"`
	Style           string `json:"style"`
	Mode            string `json:"mode"`
	Speed           string `json:"speed"`
	Instrumentation string `json:"instrumentation"`
	Vocal           string `json:"vocal"`
}

// Number accepts a JSON number or a numeric string
type Number int

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return n.parse(s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (n *Number) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = Number(v)
	return nil
}

// FromValues builds a Request from form-encoded fields
func FromValues(values url.Values) (Request, error) {
	req := Request{
		Prompt:          values.Get("prompt"),
		Lyrics:          values.Get("lyrics"),
		ImageURL:        values.Get("imageUrl"),
		AudioFormat:     values.Get("audio_format"),
		Input:           values.Get("input"),
		Style:           values.Get("style"),
		Mode:            values.Get("mode"),
		Speed:           values.Get("speed"),
		Instrumentation: values.Get("instrumentation"),
		Vocal:           values.Get("vocal"),
	}
	if err := req.Bitrate.parse(values.Get("bitrate")); err != nil {
		return Request{}, models.InvalidInputf("bitrate: %v", err)
	}
	if err := req.SampleRate.parse(values.Get("sample_rate")); err != nil {
		return Request{}, models.InvalidInputf("sample_rate: %v", err)
	}
	return req, nil
}

// Normalize maps either input shape onto the generation input.
// Shape A wins unless both prompt and lyrics are absent.
func Normalize(req Request) (models.GenerationInput, error) {
	prompt := strings.TrimSpace(req.Prompt)
	lyrics := strings.TrimSpace(req.Lyrics)

	if prompt == "" && lyrics == "" {
		lyrics = strings.TrimSpace(req.Input)
		prompt = modifierPrompt(req)
	}

	if prompt == "" {
		return models.GenerationInput{}, models.InvalidInputf("prompt is required")
	}

	in := models.GenerationInput{
		Prompt:      prompt,
		Lyrics:      lyrics,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Bitrate:     int(req.Bitrate),
		SampleRate:  int(req.SampleRate),
		AudioFormat: strings.TrimSpace(req.AudioFormat),
	}

	if in.Bitrate <= 0 {
		in.Bitrate = models.DefaultBitrate
	}
	if in.SampleRate <= 0 {
		in.SampleRate = models.DefaultSampleRate
	}
	if in.AudioFormat == "" {
		in.AudioFormat = models.DefaultAudioFormat
	}

	return in, nil
}

// modifierPrompt joins the non-empty modifiers in fixed order:
// style, mode, speed, instrumentation, vocal.
func modifierPrompt(req Request) string {
	modifiers := lo.Map([]string{req.Style, req.Mode, req.Speed, req.Instrumentation, req.Vocal}, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return strings.Join(lo.Compact(modifiers), ", ")
}
