package minimax

import "context"

// VoiceType selects which voices Voices returns.
type VoiceType string

const (
	VoiceTypeAll        VoiceType = "all"
	VoiceTypeSystem     VoiceType = "system"
	VoiceTypeCloning    VoiceType = "voice_cloning"
	VoiceTypeGeneration VoiceType = "voice_generation"
)

// Voice is a voice usable in VoiceSetting.VoiceID.
type Voice struct {
	ID          string    `json:"voice_id"`
	Name        string    `json:"voice_name"`
	Description []string  `json:"description,omitempty"`
	Type        VoiceType `json:"-"`
}

type voiceList struct {
	System     []Voice `json:"system_voice"`
	Cloning    []Voice `json:"voice_cloning"`
	Generation []Voice `json:"voice_generation"`
}

// Voices lists the voices of the given type available to the account,
// system voices first.
func (c *Client) Voices(ctx context.Context, t VoiceType) ([]Voice, error) {
	var resp voiceList
	body := struct {
		VoiceType VoiceType `json:"voice_type"`
	}{t}
	if err := c.post(ctx, "/v1/get_voice", body, &resp); err != nil {
		return nil, err
	}

	var all []Voice
	for _, group := range []struct {
		t      VoiceType
		voices []Voice
	}{
		{VoiceTypeSystem, resp.System},
		{VoiceTypeCloning, resp.Cloning},
		{VoiceTypeGeneration, resp.Generation},
	} {
		for _, v := range group.voices {
			v.Type = group.t
			all = append(all, v)
		}
	}
	return all, nil
}
