package models

// Audio parameter defaults applied when the client omits them
const (
	DefaultBitrate     = 256000
	DefaultSampleRate  = 44100
	DefaultAudioFormat = "mp3"
)

// GenerationInput is the normalized input sent to the generation service
type GenerationInput struct {
	Prompt      string
	Lyrics      string
	ImageURL    string
	Bitrate     int
	SampleRate  int
	AudioFormat string
}

// Params builds the upstream input object. Empty fields are left out
// entirely rather than sent as null or zero values.
func (in GenerationInput) Params() map[string]interface{} {
	params := map[string]interface{}{}
	if in.Prompt != "" {
		params["prompt"] = in.Prompt
	}
	if in.Lyrics != "" {
		params["lyrics"] = in.Lyrics
	}
	if in.ImageURL != "" {
		params["image_url"] = in.ImageURL
	}
	if in.Bitrate > 0 {
		params["bitrate"] = in.Bitrate
	}
	if in.SampleRate > 0 {
		params["sample_rate"] = in.SampleRate
	}
	if in.AudioFormat != "" {
		params["audio_format"] = in.AudioFormat
	}
	return params
}
