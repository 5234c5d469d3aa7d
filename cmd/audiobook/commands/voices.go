package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiobook/pkg/speech"
)

var voicesFilter string

var voicesCmd = &cobra.Command{
	Use:   "voices [provider]",
	Short: "List the voices of a speech provider",
	Long: `List the voices a speech provider accepts.

The provider defaults to the one of the current context. Voices are
passed to convert as provider/voice, e.g. polly/Joanna.

Examples:
  audiobook voices
  audiobook voices minimax --json
  audiobook voices openai --filter nova`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		name := c.ProviderName()
		if len(args) == 1 {
			name = strings.ToLower(args[0])
		}
		printVerbose("Using context: %s", c.Name)

		reqCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		p, err := newProviders(c).get(reqCtx, name)
		if err != nil {
			return err
		}
		voices, err := p.Voices(reqCtx)
		if err != nil {
			return fmt.Errorf("list voices failed: %w", err)
		}
		voices = filterVoices(voices, voicesFilter)

		type voiceList struct {
			Provider string             `yaml:"provider" json:"provider"`
			Formats  []speech.Format    `yaml:"formats" json:"formats"`
			Voices   []speech.VoiceInfo `yaml:"voices" json:"voices"`
		}
		return outputResult(voiceList{Provider: p.Name(), Formats: p.Formats(), Voices: voices})
	},
}

func init() {
	voicesCmd.Flags().StringVar(&voicesFilter, "filter", "", "only voices whose id, name or language contains this text")
}

func filterVoices(voices []speech.VoiceInfo, filter string) []speech.VoiceInfo {
	if filter == "" {
		return voices
	}
	filter = strings.ToLower(filter)
	var out []speech.VoiceInfo
	for _, v := range voices {
		for _, s := range []string{v.ID, v.Name, v.Language} {
			if strings.Contains(strings.ToLower(s), filter) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}
