// Package ffmpeg locates an ffmpeg binary, downloading a static build into
// the user cache directory when none is installed.
package ffmpeg

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	EnvFFmpegPath = "VTT_TRANSLATE_FFMPEG_PATH"

	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"
)

var (
	mu       sync.Mutex
	resolved string
)

// Locate returns the path of a usable ffmpeg binary. Lookup order is the
// VTT_TRANSLATE_FFMPEG_PATH environment variable, PATH, the download cache,
// then a fresh download. A successful result is cached for the process.
func Locate(ctx context.Context) (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if resolved != "" {
		return resolved, nil
	}

	path, err := locate(ctx, http.DefaultClient)
	if err != nil {
		return "", err
	}
	resolved = path
	return path, nil
}

func locate(ctx context.Context, client *http.Client) (string, error) {
	if path := os.Getenv(EnvFFmpegPath); path != "" {
		if !fileExists(path) {
			return "", fmt.Errorf("%s points to a missing file: %s", EnvFFmpegPath, path)
		}
		return path, nil
	}

	if found, err := exec.LookPath("ffmpeg"); err == nil {
		return found, nil
	}

	assetName, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH and no download available: %w", err)
	}

	installDir, err := cacheDir()
	if err != nil {
		return "", err
	}
	ffmpegPath := filepath.Join(installDir, "ffmpeg"+executableSuffix())
	if fileExists(ffmpegPath) {
		return ffmpegPath, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return "", fmt.Errorf("create ffmpeg cache dir: %w", err)
	}
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	if err := download(ctx, client, url, installDir); err != nil {
		return "", err
	}

	if !fileExists(ffmpegPath) {
		return "", errors.New("ffmpeg binary not found after extraction")
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(ffmpegPath, 0o755); err != nil {
			return "", fmt.Errorf("chmod ffmpeg: %w", err)
		}
	}
	return ffmpegPath, nil
}

func cacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(
		dir,
		"vtt-translate",
		"ffmpeg",
		ffmpegReleaseVersion,
		runtime.GOOS,
		runtime.GOARCH,
	), nil
}

func assetForPlatform(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-64.zip", nil
	case goos == "linux" && goarch == "arm64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-arm-64.zip", nil
	case goos == "darwin" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-macos-64.zip", nil
	case goos == "windows" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-win-64.zip", nil
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
}

func download(ctx context.Context, client *http.Client, url, installDir string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	tmpFile, err := os.CreateTemp("", "vtt-translate-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return extractArchive(archivePath, installDir)
}

// extractArchive copies the ffmpeg executable out of a zip archive.
func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	for _, file := range zipReader.File {
		if !isFFmpegBinary(filepath.Base(file.Name)) {
			continue
		}
		dest := filepath.Join(installDir, "ffmpeg"+executableSuffix())
		return extractZipFile(file, dest)
	}
	return errors.New("ffmpeg archive does not contain an ffmpeg binary")
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create ffmpeg output dir: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}
	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func isFFmpegBinary(name string) bool {
	name = strings.ToLower(name)
	return name == "ffmpeg" || name == "ffmpeg.exe"
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
