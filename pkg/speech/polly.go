package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/audio/pcm"
)

// DefaultPollyRegion is the region used when none is configured.
const DefaultPollyRegion = "us-east-1"

// pollyPCM is the PCM format requested from Polly for WAV output.
const pollyPCM = pcm.L16Mono16K

// PollyClient abstracts the Polly API operation used by [Polly].
// The [polly.Client] type satisfies this interface.
type PollyClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly synthesizes speech with Amazon Polly.
type Polly struct {
	client PollyClient
	engine types.Engine
}

var _ Provider = (*Polly)(nil)

// PollyOption configures a Polly provider.
type PollyOption func(*Polly)

// WithPollyEngine selects the Polly engine ("standard", "neural", ...).
// The default is the standard engine.
func WithPollyEngine(engine string) PollyOption {
	return func(p *Polly) {
		p.engine = types.Engine(engine)
	}
}

// NewPolly creates a Polly provider using client.
func NewPolly(client PollyClient, opts ...PollyOption) *Polly {
	p := &Polly{client: client, engine: types.EngineStandard}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPollyClient builds a Polly API client from static credentials.
func NewPollyClient(region, accessKey, secretKey string) *polly.Client {
	if region == "" {
		region = DefaultPollyRegion
	}
	return polly.New(polly.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	})
}

// Name implements Provider.
func (p *Polly) Name() string { return "polly" }

// Formats implements Provider.
func (p *Polly) Formats() []Format { return []Format{FormatMP3, FormatWAV} }

// Voices implements Provider. Polly's voice set is fixed per SDK release.
func (p *Polly) Voices(context.Context) ([]VoiceInfo, error) {
	ids := types.VoiceId("").Values()
	voices := make([]VoiceInfo, 0, len(ids))
	for _, id := range ids {
		voices = append(voices, VoiceInfo{ID: string(id), Name: string(id)})
	}
	return voices, nil
}

// Synthesize implements Service.
func (p *Polly) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	in := &polly.SynthesizeSpeechInput{
		Text:     aws.String(req.Text),
		VoiceId:  types.VoiceId(req.Voice.ID),
		Engine:   p.engine,
		TextType: types.TextTypeText,
	}
	switch req.Format {
	case FormatMP3:
		in.OutputFormat = types.OutputFormatMp3
	case FormatWAV:
		in.OutputFormat = types.OutputFormatPcm
		in.SampleRate = aws.String(fmt.Sprint(pollyPCM.SampleRate()))
	default:
		return nil, fmt.Errorf("%w: polly cannot produce %s", ErrUnsupportedFormat, req.Format)
	}

	out, err := p.client.SynthesizeSpeech(ctx, in)
	if err != nil {
		return nil, pollyError(err)
	}
	defer out.AudioStream.Close()

	data, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Message: "read audio stream", Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Provider: p.Name(), Err: ErrEmptyAudio}
	}

	if req.Format == FormatWAV {
		var buf bytes.Buffer
		if err := wav.Encode(&buf, pollyPCM, data); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	return &Audio{Data: data, Format: req.Format}, nil
}

// pollyError converts an AWS SDK error into *Error.
func pollyError(err error) error {
	e := &Error{Provider: "polly", Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		e.Code = apiErr.ErrorCode()
		e.Message = apiErr.ErrorMessage()
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		e.Status = respErr.HTTPStatusCode()
	}
	return e
}
