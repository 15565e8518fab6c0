// Command measure runs the measurement engine on a landmarks file, for offline recalibration
// and for checking detector output against known values.
//
//	measure -width 640 -height 480 -frame-width-mm 140 landmarks.json
//
// The input is either a bare [[x,y,z],...] array or an object with a "landmarks" field.
// A "-" path reads stdin.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"LensFitter/pkg/handlerUtil"
	"LensFitter/pkg/log"
	"LensFitter/pkg/measurement"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
)

type input struct {
	Landmarks    [][]float64 `json:"landmarks"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	FrameWidthMM float64     `json:"frame_width_mm"`
}

type output struct {
	measurement.Result
	Diagnostics *measurement.Diagnostics `json:"diagnostics,omitempty"`
}

func main() {
	os.Setenv("APP_ENV", "cli")
	_ = godotenv.Load()

	width := flag.Int("width", 0, "frame width in pixels")
	height := flag.Int("height", 0, "frame height in pixels")
	frameWidthMM := flag.Float64("frame-width-mm", 0, "physical reference width in millimetres")
	diagnostics := flag.Bool("diagnostics", false, "include pre-clamp values")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: measure [flags] <landmarks.json|->")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *width, *height, *frameWidthMM, *diagnostics, os.Stdout); err != nil {
		_, code, message, _ := handlerUtil.Classify(err)
		log.Error(log.Fields{"code": code, "error": err.Error()}, "Measurement failed")
		fmt.Fprintf(os.Stderr, "%s: %s\n", code, message)
		os.Exit(1)
	}
}

func run(path string, width, height int, frameWidthMM float64, withDiagnostics bool, w io.Writer) error {
	raw, err := readInput(path)
	if err != nil {
		return err
	}

	in, err := decodeInput(raw)
	if err != nil {
		return err
	}

	// flags win over values carried in the file
	if width > 0 {
		in.Width = width
	}
	if height > 0 {
		in.Height = height
	}
	if frameWidthMM != 0 {
		in.FrameWidthMM = frameWidthMM
	}

	constants, err := measurement.ConstantsFromEnv()
	if err != nil {
		return err
	}
	engine := measurement.New(measurement.WithConstants(constants))

	landmarks, err := measurement.FromPoints(in.Landmarks)
	if err != nil {
		return err
	}

	result, err := engine.Compute(landmarks, measurement.FrameContext{
		WidthPx:      in.Width,
		HeightPx:     in.Height,
		FrameWidthMM: in.FrameWidthMM,
	})
	if err != nil {
		return err
	}

	out := output{Result: result}
	if withDiagnostics {
		out.Diagnostics = &result.Diagnostics
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func decodeInput(raw []byte) (input, error) {
	var in input
	if err := jsoniter.Unmarshal(raw, &in.Landmarks); err == nil {
		return in, nil
	}
	if err := jsoniter.Unmarshal(raw, &in); err != nil {
		return input{}, errors.New("input is neither a landmark array nor a landmarks request")
	}
	return in, nil
}
