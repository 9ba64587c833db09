package config

import (
	"path/filepath"
	"reflect"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/notify"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
)

type Config struct {
	Transcription  TranscriptionConfig  `toml:"transcription"`
	PostProcessing PostProcessingConfig `toml:"post_processing"`
	Recording      RecordingConfig      `toml:"recording"`
	Output         OutputConfig         `toml:"output"`
	Notifications  NotificationsConfig  `toml:"notifications"`
}

type TranscriptionConfig struct {
	Executable string        `toml:"executable"`
	Model      string        `toml:"model"`
	Language   string        `toml:"language"` // empty or "auto" for auto-detect
	Timeout    time.Duration `toml:"timeout"`
	Threads    int           `toml:"threads"` // 0 = auto: NumCPU-1
}

type PostProcessingConfig struct {
	Enabled      bool          `toml:"enabled"`
	Executable   string        `toml:"executable"`
	Model        string        `toml:"model"`
	Timeout      time.Duration `toml:"timeout"`
	GPU          bool          `toml:"gpu"`
	GPULayers    int           `toml:"gpu_layers"`
	GlossaryFile string        `toml:"glossary_file"`
}

type RecordingConfig struct {
	SampleRate  int           `toml:"sample_rate"`
	Channels    int           `toml:"channels"`
	Device      string        `toml:"device"`
	Timeout     time.Duration `toml:"timeout"`      // maximum recording length
	MinDuration time.Duration `toml:"min_duration"` // shorter recordings are discarded
	Directory   string        `toml:"directory"`    // empty = data dir/recordings
	Keep        bool          `toml:"keep"`         // keep WAV files after processing
}

type OutputConfig struct {
	Backends     []string      `toml:"backends"` // "clipboard", "wtype", "ydotool"
	WtypeTimeout time.Duration `toml:"wtype_timeout"`
	History      bool          `toml:"history"`
	HistoryPath  string        `toml:"history_path"` // empty = data dir/history.db
}

type NotificationsConfig struct {
	Enabled                  bool           `toml:"enabled"`
	Type                     string         `toml:"type"` // "desktop", "log", "none"
	FailureAdvisoryThreshold int            `toml:"failure_advisory_threshold"`
	Messages                 MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	RecordingStarted MessageConfig `toml:"recording_started"`
	Processing       MessageConfig `toml:"processing"`
	PostProcessing   MessageConfig `toml:"post_processing"`
	Completed        MessageConfig `toml:"completed"`
	NoSpeech         MessageConfig `toml:"no_speech"`
	Failed           MessageConfig `toml:"failed"`
	Cancelled        MessageConfig `toml:"cancelled"`
	Ignored          MessageConfig `toml:"ignored"`
	Advisory         MessageConfig `toml:"advisory"`
	ConfigReloaded   MessageConfig `toml:"config_reloaded"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}

// NotifierType returns the effective notifier kind, folding Enabled into it.
func (c *Config) NotifierType() string {
	if !c.Notifications.Enabled {
		return "none"
	}
	return c.Notifications.Type
}

// TranscriptionRequest returns the request template for the next dictation.
func (c *Config) TranscriptionRequest() transcriber.Request {
	lang := c.Transcription.Language
	if lang == "auto" {
		lang = ""
	}
	return transcriber.Request{
		Language:       lang,
		ModelPath:      c.Transcription.Model,
		ExecutablePath: c.Transcription.Executable,
		Timeout:        c.Transcription.Timeout,
		Threads:        c.Transcription.Threads,
	}
}

func (c *Config) ToLLMConfig() llm.Config {
	return llm.Config{
		ExecutablePath: c.PostProcessing.Executable,
		ModelPath:      c.PostProcessing.Model,
		Timeout:        c.PostProcessing.Timeout,
		GPU:            c.PostProcessing.GPU,
		GPULayers:      c.PostProcessing.GPULayers,
	}
}

// IsPostProcessingEnabled returns true if post-processing is enabled and configured
func (c *Config) IsPostProcessingEnabled() bool {
	return c.PostProcessing.Enabled && c.PostProcessing.Executable != "" && c.PostProcessing.Model != ""
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Output.Backends = append([]string(nil), c.Output.Backends...)
	return &cp
}

// RecordingDirectory returns recording.directory, defaulting to
// <data dir>/recordings.
func (c *Config) RecordingDirectory() (string, error) {
	if c.Recording.Directory != "" {
		return c.Recording.Directory, nil
	}
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "recordings"), nil
}

// HistoryFile returns output.history_path, defaulting to <data dir>/history.db.
func (c *Config) HistoryFile() (string, error) {
	if c.Output.HistoryPath != "" {
		return c.Output.HistoryPath, nil
	}
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
