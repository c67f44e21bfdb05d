package mmlplayer

import (
	"errors"

	intfm "github.com/nxaudio/mmlplayer/internal/fmsynth"
	intseq "github.com/nxaudio/mmlplayer/internal/sequencer"
	intsf "github.com/nxaudio/mmlplayer/internal/soundfont"
)

// EngineFactory builds a fresh voice engine and reports the master gain it
// should run at when the player volume is 1.
type EngineFactory func(sampleRate int) (intseq.VoiceEngine, float64, error)

// FMEngine returns a factory for the operator FM synth using one of its
// algorithms (0 sine, 1 modulated, 2 feedback).
func FMEngine(alg intfm.Algorithm) EngineFactory {
	return FMEngineParams(alg, intfm.DefaultParams())
}

// FMEngineParams is FMEngine with explicit synth parameters.
func FMEngineParams(alg intfm.Algorithm, params intfm.Params) EngineFactory {
	return func(sampleRate int) (intseq.VoiceEngine, float64, error) {
		e := intfm.New(sampleRate, params)
		e.SetAlgorithm(alg)
		return e, params.MasterGain, nil
	}
}

// SoundFontEngine returns a factory rendering through a loaded SoundFont.
func SoundFontEngine(font *intsf.Font) EngineFactory {
	return func(sampleRate int) (intseq.VoiceEngine, float64, error) {
		if font == nil {
			return nil, 0, errors.New("no soundfont loaded")
		}
		e, err := font.NewEngine(sampleRate)
		if err != nil {
			return nil, 0, err
		}
		return e, 1, nil
	}
}
