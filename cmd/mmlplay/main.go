package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/remeh/sizedwaitgroup"

	"github.com/nxaudio/mmlplayer"
	intfm "github.com/nxaudio/mmlplayer/internal/fmsynth"
	"github.com/nxaudio/mmlplayer/internal/midiexport"
	intmml "github.com/nxaudio/mmlplayer/internal/mml"
	"github.com/nxaudio/mmlplayer/internal/scorefile"
	intseq "github.com/nxaudio/mmlplayer/internal/sequencer"
	intsf "github.com/nxaudio/mmlplayer/internal/soundfont"
	"github.com/nxaudio/mmlplayer/internal/wavout"
)

const defaultMML = "R: T120 L8 O5 C D E F G A B > C; L: O3 C2 G2"

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		engineName = flag.String("engine", "fm", "synth engine: fm|soundfont")
		sfPath     = flag.String("soundfont", "", "path to a .sf2 file for -engine soundfont")
		mode       = flag.Int("mode", 1, "fm algorithm: 0 sine, 1 modulated, 2 feedback")
		vibrato    = flag.Float64("vibrato", 0, "fm vibrato depth in semitones")
		volume     = flag.Int("volume", 100, "master volume 0..100")
		reverb     = flag.Float64("reverb", 0, "hall reverb mix 0..1")
		loop       = flag.Bool("loop", false, "loop playback until interrupted")
		mmlPath    = flag.String("file", "", "path to an MML score")
		mmlInline  = flag.String("mml", "", "inline MML score")
		encoding   = flag.String("encoding", "auto", "score encoding: "+strings.Join(scorefile.Encodings, "|"))
		wavOut     = flag.String("wav", "", "render to a WAV file instead of playing")
		midiOut    = flag.String("midi", "", "export a Standard MIDI File")
		dump       = flag.Bool("dump", false, "print the parsed events of every part")
		seconds    = flag.Float64("seconds", 0, "stop after this many seconds (0 = until the score ends)")
		jobs       = flag.Int("jobs", runtime.NumCPU(), "parallel renders in batch mode")
	)
	flag.Parse()

	if *sampleRate <= 0 {
		log.Fatalf("invalid -sample-rate %d (must be positive)", *sampleRate)
	}
	if *volume < 0 || *volume > 100 {
		log.Fatalf("invalid -volume %d (expected 0..100)", *volume)
	}
	if *reverb < 0 || *reverb > 1 {
		log.Fatalf("invalid -reverb %g (expected 0..1)", *reverb)
	}
	factory, err := buildEngine(*engineName, *sfPath, *mode, *vibrato)
	if err != nil {
		log.Fatal(err)
	}
	cfg := intmml.DefaultConfig()
	cfg.SampleRate = *sampleRate

	if flag.NArg() > 0 {
		if err := renderBatch(flag.Args(), *encoding, cfg, factory, *seconds, *reverb, *jobs); err != nil {
			log.Fatal(err)
		}
		return
	}

	parts, err := resolveParts(*mmlPath, *mmlInline, *encoding)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d part(s), %s\n", len(parts), formatDuration(mmlplayer.Duration(parts, cfg)))

	exported := false
	if *dump {
		exported = true
		if err := mmlplayer.Dump(os.Stdout, parts, cfg); err != nil {
			log.Fatal(err)
		}
	}
	if *midiOut != "" {
		exported = true
		if err := exportMIDI(*midiOut, parts, cfg); err != nil {
			log.Fatal(err)
		}
	}
	if *wavOut != "" {
		exported = true
		if err := renderWAV(context.Background(), *wavOut, parts, cfg, factory, *seconds, *reverb); err != nil {
			log.Fatal(err)
		}
	}
	if exported {
		return
	}

	pl, err := mmlplayer.NewPlayer(*sampleRate,
		mmlplayer.WithEngine(factory),
		mmlplayer.WithParserConfig(cfg),
		mmlplayer.WithLoopPlayback(*loop),
		mmlplayer.WithReverb(*reverb),
	)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(float64(*volume) / 100)
	ch := pl.Watch()
	if err := pl.Play(parts); err != nil {
		log.Fatal(err)
	}
	if *seconds > 0 {
		time.AfterFunc(time.Duration(*seconds*float64(time.Second)), func() {
			if err := pl.Stop(); err != nil {
				log.Printf("stop: %v", err)
			}
		})
	}
	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case mmlplayer.EventPlaybackEnded:
			fmt.Println("playback completed")
			goto done
		case mmlplayer.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
		case mmlplayer.EventFault:
			log.Printf("%s: %v", event.Part, event.Err)
		}
	}
done:
	pl.Wait()
}

func buildEngine(name, sfPath string, mode int, vibrato float64) (mmlplayer.EngineFactory, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fm":
		if mode < 0 || mode > 2 {
			return nil, fmt.Errorf("invalid -mode %d (expected 0..2)", mode)
		}
		params := intfm.DefaultParams()
		if vibrato != 0 {
			params.VibratoRate = 5.5
			params.VibratoDepth = vibrato
		}
		return mmlplayer.FMEngineParams(intfm.Algorithm(mode), params), nil
	case "soundfont", "sf2":
		if sfPath == "" {
			return nil, fmt.Errorf("-engine soundfont needs -soundfont")
		}
		f, err := os.Open(sfPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		font, err := intsf.Open(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", sfPath, err)
		}
		return mmlplayer.SoundFontEngine(font), nil
	default:
		return nil, fmt.Errorf("invalid -engine %q (expected fm|soundfont)", name)
	}
}

func resolveParts(path, inline, enc string) ([]intseq.Part, error) {
	if strings.TrimSpace(inline) != "" {
		return nonEmpty(scorefile.Split(inline))
	}
	if strings.TrimSpace(path) != "" {
		parts, err := scorefile.Load(path, enc)
		if err != nil {
			return nil, err
		}
		return nonEmpty(parts)
	}
	return scorefile.Split(defaultMML), nil
}

func nonEmpty(parts []intseq.Part) ([]intseq.Part, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("score has no parts")
	}
	return parts, nil
}

func exportMIDI(path string, parts []intseq.Part, cfg intmml.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	sum, err := midiexport.Write(f, parts, cfg)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, fault := range sum.Faults {
		log.Printf("%s: %v", fault.Part, fault.Err)
	}
	fmt.Printf("%s: %d tracks, %d notes, %s (%s)\n",
		path, sum.Tracks, sum.Notes, formatDuration(sum.Duration), fileSize(path))
	return nil
}

func renderWAV(ctx context.Context, path string, parts []intseq.Part, cfg intmml.Config, factory mmlplayer.EngineFactory, seconds, reverb float64) error {
	samples, err := mmlplayer.RenderParts(ctx, parts, cfg, factory, seconds)
	if err != nil {
		return err
	}
	mmlplayer.Master(samples, cfg.SampleRate, reverb)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = wavout.Write(f, samples, cfg.SampleRate, 2)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	length := time.Duration(len(samples)/2) * time.Second / time.Duration(cfg.SampleRate)
	fmt.Printf("%s: %s (%s)\n", path, formatDuration(length), fileSize(path))
	return nil
}

// renderBatch renders every score to a WAV file beside it.
func renderBatch(paths []string, enc string, cfg intmml.Config, factory mmlplayer.EngineFactory, seconds, reverb float64, jobs int) error {
	if jobs < 1 {
		jobs = 1
	}
	wg := sizedwaitgroup.New(jobs)
	failed := make(chan string, len(paths))
	for _, path := range paths {
		wg.Add()
		go func(path string) {
			defer wg.Done()
			parts, err := scorefile.Load(path, enc)
			if err == nil {
				_, err = nonEmpty(parts)
			}
			if err == nil {
				err = renderWAV(context.Background(), wavPath(path), parts, cfg, factory, seconds, reverb)
			}
			if err != nil {
				log.Printf("%s: %v", path, err)
				failed <- path
			}
		}(path)
	}
	wg.Wait()
	close(failed)
	if n := len(failed); n > 0 {
		return fmt.Errorf("%d of %d scores failed", n, len(paths))
	}
	return nil
}

func wavPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".wav"
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return durafmt.Parse(d).LimitFirstN(2).Format(shortUnits)
}
