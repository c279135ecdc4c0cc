package hifiberry

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// StreamFormat describes a PCM stream as the clock tree sees it.
type StreamFormat struct {
	Rate     uint64
	Channels uint32
	Format   PcmFormat
}

// String implements fmt.Stringer.
func (s StreamFormat) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %s", s.Rate, s.Channels, s.Format)
}

// HwParams returns the negotiated parameters for s.
func (s StreamFormat) HwParams() HwParams {
	return HwParams{Rate: s.Rate, Width: PcmFormatWidth(s.Format), Channels: s.Channels}
}

// ClockRequest returns a resolver request for s with frames sized by the sample container.
func (s StreamFormat) ClockRequest() ClockRequest {
	return ClockRequest{SampleRate: s.Rate, FrameBits: PcmFormatToBits(s.Format) * s.Channels}
}

// FormatForDepth returns the PCM format carrying integer samples of bitDepth bits.
func FormatForDepth(bitDepth int) (PcmFormat, error) {
	switch bitDepth {
	case 16:
		return SNDRV_PCM_FORMAT_S16_LE, nil
	case 20:
		return SNDRV_PCM_FORMAT_S20_3LE, nil
	case 24:
		return SNDRV_PCM_FORMAT_S24_3LE, nil
	case 32:
		return SNDRV_PCM_FORMAT_S32_LE, nil
	default:
		return SNDRV_PCM_FORMAT_INVALID, fmt.Errorf("bit depth %d: %w", bitDepth, ErrInvalidArgument)
	}
}

// StreamFromAudio converts a go-audio format with integer samples of bitDepth bits.
func StreamFromAudio(f *audio.Format, bitDepth int) (StreamFormat, error) {
	if f == nil || f.SampleRate <= 0 || f.NumChannels <= 0 {
		return StreamFormat{}, fmt.Errorf("audio format: %w", ErrInvalidArgument)
	}

	pf, err := FormatForDepth(bitDepth)
	if err != nil {
		return StreamFormat{}, err
	}

	return StreamFormat{Rate: uint64(f.SampleRate), Channels: uint32(f.NumChannels), Format: pf}, nil
}

// StreamFromWAV reads the stream format from a WAV header. IEEE float files are rejected.
func StreamFromWAV(r io.ReadSeeker) (StreamFormat, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return StreamFormat{}, fmt.Errorf("invalid WAV file: %w", ErrInvalidArgument)
	}

	// Format 3 is IEEE float.
	if decoder.WavAudioFormat == 3 {
		return StreamFormat{}, fmt.Errorf("float WAV: %w", ErrInvalidArgument)
	}

	return StreamFromAudio(decoder.Format(), int(decoder.BitDepth))
}

// StreamFromMP3 reads the stream format of an MP3 file. The decoder always produces 16-bit stereo.
func StreamFromMP3(r io.Reader) (StreamFormat, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return StreamFormat{}, fmt.Errorf("mp3: %w", err)
	}

	return StreamFromAudio(&audio.Format{NumChannels: 2, SampleRate: decoder.SampleRate()}, 16)
}
