package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/mgpai22/vtt-translate/internal/config"
	"github.com/mgpai22/vtt-translate/internal/ffmpeg"
	"github.com/mgpai22/vtt-translate/internal/translate"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:02.000
Hello

00:00:02.000 --> 00:00:04.000
there. How are you?
`

// resetFlags restores every flag of cmd and its children to its default so
// commands can run more than once in a test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// isolate keeps the user's config file and credentials out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, env := range []string{
		config.EnvAzureKey,
		config.EnvAzureRegion,
		config.EnvOpenAIKey,
		config.EnvAnthropicKey,
		config.EnvGeminiKey,
	} {
		t.Setenv(env, "")
	}
}

func fakeAzureServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/languages":
			_, _ = io.WriteString(w, `{"translation":{
				"de":{"name":"German","nativeName":"Deutsch","dir":"ltr"},
				"en":{"name":"English","nativeName":"English","dir":"ltr"},
				"fa":{"name":"Persian","nativeName":"فارسی","dir":"rtl"}
			}}`)
		case "/translate":
			if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":{"code":401000,"message":"bad key"}}`)
				return
			}
			var body []struct{ Text string }
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			resp := make([]map[string]interface{}, len(body))
			for i, item := range body {
				resp[i] = map[string]interface{}{
					"translations": []map[string]string{{"text": "[" + item.Text + "]", "to": "fa"}},
				}
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, endpoint, key string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[azure]\nendpoint = \"" + endpoint + "\"\nregion = \"westeurope\"\n"
	if key != "" {
		content += "key = \"" + key + "\"\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeSubtitles(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
		t.Fatalf("write subtitles: %v", err)
	}
	return path
}

func TestTranslateCommand(t *testing.T) {
	isolate(t)
	srv := fakeAzureServer(t)
	cfgPath := writeConfig(t, srv.URL, "test-key")
	input := writeSubtitles(t, "talk.en.vtt")

	out, err := execute(t, "translate", input, "--config", cfgPath, "-s", "en")
	if err != nil {
		t.Fatalf("translate returned error: %v", err)
	}

	want := filepath.Join(filepath.Dir(input), "talk.fa.vtt")
	if !strings.Contains(out, "Subtitles translated successfully") || !strings.Contains(out, "talk.fa.vtt") {
		t.Errorf("unexpected output:\n%s", out)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "WEBVTT") {
		t.Errorf("output is not WebVTT:\n%s", text)
	}
	if !strings.Contains(text, "00:00:02.000 --> 00:00:04.000") {
		t.Errorf("cue timing lost:\n%s", text)
	}
	if !strings.Contains(text, "\u200f") {
		t.Errorf("expected RTL marks for a right to left target:\n%s", text)
	}
}

func TestTranslateCommandLogsCarryInput(t *testing.T) {
	isolate(t)
	srv := fakeAzureServer(t)
	cfgPath := writeConfig(t, srv.URL, "test-key")
	input := writeSubtitles(t, "talk.en.vtt")

	var logs bytes.Buffer
	logOutput = zapcore.AddSync(&logs)
	t.Cleanup(func() { logOutput = nil })

	if _, err := execute(t, "translate", input, "--config", cfgPath, "--log-format", "json", "-v"); err != nil {
		t.Fatalf("translate returned error: %v", err)
	}

	var stages int
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if entry["msg"] != "Pipeline stage complete" {
			continue
		}
		stages++
		if entry["input"] != input {
			t.Errorf("stage log missing input field: %v", entry)
		}
	}
	if stages == 0 {
		t.Errorf("no pipeline stage logs captured:\n%s", logs.String())
	}
}

func TestTranslateCommandFlagsOverrideConfig(t *testing.T) {
	isolate(t)
	srv := fakeAzureServer(t)
	cfgPath := writeConfig(t, srv.URL, "wrong-key")
	input := writeSubtitles(t, "talk.vtt")
	output := filepath.Join(t.TempDir(), "out.vtt")

	_, err := execute(t, "translate", input, "--config", cfgPath, "-o", output)
	var authErr *translate.AuthError
	if err == nil || !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError with the config key, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Errorf("output written after failure, stat err = %v", statErr)
	}

	if _, err := execute(t, "translate", input, "--config", cfgPath, "-o", output, "--azure-key", "test-key"); err != nil {
		t.Fatalf("translate with --azure-key returned error: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestTranslateCommandErrors(t *testing.T) {
	isolate(t)
	cfgPath := writeConfig(t, "http://127.0.0.1:1", "test-key")
	input := writeSubtitles(t, "talk.vtt")
	srt := filepath.Join(filepath.Dir(input), "talk.srt")
	if err := os.WriteFile(srt, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"translate", filepath.Join(t.TempDir(), "nope.vtt")}, "not found"},
		{"wrong extension", []string{"translate", srt}, "only .vtt"},
		{"unsupported target", []string{"translate", input, "-t", "de"}, "de"},
		{"same languages", []string{"translate", input, "-s", "fa", "-t", "fa"}, "both"},
		{"bad provider", []string{"translate", input, "--provider", "deepl"}, "unsupported provider"},
		{"missing llm key", []string{"translate", input, "--provider", "openai"}, "API key is required"},
		{"bad model", []string{"translate", input, "--provider", "gemini", "-k", "x", "--model", "gemini-0"}, "model-override"},
		{"bad concurrency", []string{"translate", input, "--concurrency", "0"}, "concurrency"},
		{"no args", []string{"translate"}, "arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--config", cfgPath)
			_, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateModel(t *testing.T) {
	tests := []struct {
		provider translate.Provider
		model    string
		override bool
		wantErr  bool
	}{
		{translate.ProviderOpenAI, "", false, false},
		{translate.ProviderOpenAI, "gpt-5-mini", false, false},
		{translate.ProviderOpenAI, "gpt-2", false, true},
		{translate.ProviderOpenAI, "gpt-2", true, false},
		{translate.ProviderGemini, "gemini-2.5-flash", false, false},
		{translate.ProviderAnthropic, "claude-haiku-4-5", false, false},
		{translate.ProviderAnthropic, "claude-1", false, true},
		{translate.ProviderAzure, "anything", false, false},
	}
	for _, tt := range tests {
		err := validateModel(tt.provider, tt.model, tt.override)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateModel(%s, %q, %v) = %v", tt.provider, tt.model, tt.override, err)
		}
	}
}

func TestLanguagesCommand(t *testing.T) {
	isolate(t)
	srv := fakeAzureServer(t)
	cfgPath := writeConfig(t, srv.URL, "")

	out, err := execute(t, "languages", "--config", cfgPath)
	if err != nil {
		t.Fatalf("languages returned error: %v", err)
	}
	for _, want := range []string{"Code", "Persian", "RTL", "German", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "languages", "--config", cfgPath, "--supported")
	if err != nil {
		t.Fatalf("languages --supported returned error: %v", err)
	}
	if strings.Contains(out, "German") || !strings.Contains(out, "Persian") {
		t.Errorf("--supported should only list supported languages:\n%s", out)
	}
}

func TestRenderTable(t *testing.T) {
	if got := renderTable(nil, nil); got != "" {
		t.Errorf("expected empty table, got %q", got)
	}
	got := renderTable([]column{{title: "A"}, {title: "B"}}, [][]string{{"one"}})
	if !strings.Contains(got, "one") || !strings.Contains(got, "B") {
		t.Errorf("unexpected table:\n%s", got)
	}
}

func TestExtractCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	isolate(t)

	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\nfor a in \"$@\"; do\n  case \"$a\" in *.vtt-translate-extract-*) out=\"$a\";; esac\ndone\nprintf 'WEBVTT\\n\\n00:00:01.000 --> 00:00:02.000\\nHi.\\n' > \"$out\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	t.Setenv(ffmpeg.EnvFFmpegPath, bin)

	videoPath := filepath.Join(dir, "movie.mkv")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	out, err := execute(t, "extract", videoPath, "--stream", "1")
	if err != nil {
		t.Fatalf("extract returned error: %v", err)
	}
	if !strings.Contains(out, "movie.1.vtt") || !strings.Contains(out, "Cues: 1") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "extract", videoPath, "--stream", "-1"); err == nil {
		t.Error("expected error for negative stream")
	}
}
