package videox

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Package videox extracts still frames from video files by shelling out to
// ffprobe/ffmpeg, so that videos can feed the ingest pipeline as plain images.

// Frame rate we assume when ffprobe can't tell us the real one
const FallbackFPS = 30.0

// Extract the duration of a video file
func ExtractVideoDuration(srcFilename string) (time.Duration, error) {
	args := []string{
		"-v",
		"error",
		"-show_entries",
		"format=duration",
		"-of",
		"default=noprint_wrappers=1:nokey=1",
		srcFilename,
	}
	out, err := RunAppCombinedOutput("ffprobe", args)
	if err != nil {
		return 0, err
	}
	// I don't know why, but the full output on my machine is two lines:
	//   Warning: using insecure memory!
	//   6.399000
	// So we make allowance for that here.
	outStr := string(out)
	for _, line := range strings.Split(outStr, "\n") {
		if seconds, err := strconv.ParseFloat(strings.TrimSpace(line), 64); err == nil {
			return time.Duration(seconds * float64(time.Second)), nil
		}
	}
	return 0, fmt.Errorf("Unable to parse ffprobe output: %v", outStr)
}

// ExtractVideoFPS reads the native frame rate of a video file.
// ffprobe reports it as a fraction, eg "30000/1001".
func ExtractVideoFPS(srcFilename string) (float64, error) {
	args := []string{
		"-v",
		"error",
		"-select_streams",
		"v:0",
		"-show_entries",
		"stream=r_frame_rate",
		"-of",
		"default=noprint_wrappers=1:nokey=1",
		srcFilename,
	}
	out, err := RunAppCombinedOutput("ffprobe", args)
	if err != nil {
		return 0, err
	}
	outStr := string(out)
	for _, line := range strings.Split(outStr, "\n") {
		if fps, err := ParseFPSFraction(strings.TrimSpace(line)); err == nil {
			return fps, nil
		}
	}
	return 0, fmt.Errorf("Unable to parse ffprobe frame rate output: %v", outStr)
}

// ParseFPSFraction parses an ffprobe rational such as "30000/1001" or "25"
func ParseFPSFraction(s string) (float64, error) {
	if num, den, found := strings.Cut(s, "/"); found {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, fmt.Errorf("Invalid frame rate fraction '%v'", s)
		}
		return n / d, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("Invalid frame rate '%v'", s)
	}
	return v, nil
}

// SampleStride returns the integer frame stride that keeps approximately one
// frame per everyNSec seconds of video, never less than 1.
func SampleStride(fps, everyNSec float64) int {
	if fps <= 0 {
		fps = FallbackFPS
	}
	return int(math.Max(1, math.Round(fps*everyNSec)))
}

// ExtractFrames samples frames from a video at a fixed time interval and
// writes them into outDir as "<stem>_f%06d.jpg". ffmpeg numbers the files by
// output counter (f000001, f000002, ...), so re-extracting the same video
// produces the same filenames. Frames left over from a previous extraction of
// the same video are removed first, so the returned count is the number of
// frames this run wrote.
func ExtractFrames(srcFilename, outDir string, everyNSec float64) (int, error) {
	fps, err := ExtractVideoFPS(srcFilename)
	if err != nil {
		fps = FallbackFPS
	}
	stride := SampleStride(fps, everyNSec)

	if err := os.MkdirAll(outDir, 0775); err != nil {
		return 0, err
	}
	stem := strings.TrimSuffix(filepath.Base(srcFilename), filepath.Ext(srcFilename))
	pattern := filepath.Join(outDir, stem+"_f%06d.jpg")

	if err := removeFrameFiles(outDir, stem); err != nil {
		return 0, err
	}

	args := []string{
		"-y",
		"-i",
		srcFilename,
		"-vf",
		fmt.Sprintf("select=not(mod(n\\,%v))", stride),
		"-vsync",
		"vfr",
		"-q:v",
		"8",
		pattern,
	}
	if _, err := RunAppCombinedOutput("ffmpeg", args); err != nil {
		return 0, err
	}

	return countFrameFiles(outDir, stem)
}

func frameFiles(dir, stem string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, stem+"_f*.jpg"))
}

func countFrameFiles(dir, stem string) (int, error) {
	matches, err := frameFiles(dir, stem)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func removeFrameFiles(dir, stem string) error {
	matches, err := frameFiles(dir, stem)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return nil
}

// app_name is an executable, such as "ffmpeg" or "ffprobe"
// args must not include the executable name as the first parameter
// Returns the string output from exec.Cmd's "CombinedOutput" method.
func RunAppCombinedOutput(app_name string, args []string) ([]byte, error) {
	app_path, err := exec.LookPath(app_name)
	if err != nil {
		return nil, fmt.Errorf("Unable to find '%v' in your path (%w)", app_name, err)
	}
	args_with_app := append([]string{app_name}, args...)
	cmd := &exec.Cmd{
		Path: app_path,
		Args: args_with_app,
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		outStr := ""
		if out != nil {
			outStr = string(out)
		}
		return nil, fmt.Errorf("%v execution failed: %w (%v)", app_name, err, outStr)
	}
	return out, nil
}
