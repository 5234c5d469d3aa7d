// Package minimax is a small client for the MiniMax text-to-speech API.
//
// Only the synchronous t2a_v2 endpoint and voice listing are covered:
//
//	client := minimax.NewClient(apiKey)
//	resp, err := client.Synthesize(ctx, &minimax.SpeechRequest{
//	    Model:        minimax.ModelSpeech26HD,
//	    Text:         "Call me Ishmael.",
//	    VoiceSetting: &minimax.VoiceSetting{VoiceID: "English_Graceful_Lady"},
//	    AudioSetting: &minimax.AudioSetting{Format: minimax.AudioFormatMP3},
//	})
//
// Every call is made once. API failures are returned as *Error, whose
// Retryable method tells callers whether sending the request again may
// succeed.
package minimax
