package recording

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leonardotrapani/hyprdictate/internal/procexec"
)

var ErrNotRecording = errors.New("not recording")

type Config struct {
	Command     string // capture tool, pw-record by default
	SampleRate  int
	Channels    int
	Device      string
	BufferSize  int
	MaxDuration time.Duration
	MinDuration time.Duration
	Directory   string
}

func DefaultConfig() Config {
	return Config{
		Command:     "pw-record",
		SampleRate:  16000,
		Channels:    1,
		Device:      "",
		BufferSize:  4096,
		MaxDuration: 5 * time.Minute,
		MinDuration: 200 * time.Millisecond,
		Directory:   os.TempDir(),
	}
}

// Recorder captures raw s16le PCM from the capture tool and turns it into a
// validated WAV file on Stop.
type Recorder struct {
	config    Config
	recording atomic.Bool

	mu      sync.Mutex // guards cmd, cancel, pcm and readErr
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	pcm     bytes.Buffer
	readErr error

	wg sync.WaitGroup
}

func NewRecorder(config Config) *Recorder {
	if config.Command == "" {
		config.Command = "pw-record"
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}
	return &Recorder{config: config}
}

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Start launches the capture tool. Capture stops on Stop, Cancel, ctx
// cancellation or after MaxDuration, whichever comes first.
func (r *Recorder) Start(ctx context.Context) error {
	if r.recording.Load() {
		return fmt.Errorf("already recording")
	}

	if err := r.validateConfig(); err != nil {
		return err
	}

	if _, err := exec.LookPath(r.config.Command); err != nil {
		return fmt.Errorf("%s not found: %w (install pipewire-tools)", r.config.Command, err)
	}

	var (
		recordingCtx context.Context
		cancel       context.CancelFunc
	)
	if r.config.MaxDuration > 0 {
		recordingCtx, cancel = context.WithTimeout(ctx, r.config.MaxDuration)
	} else {
		recordingCtx, cancel = context.WithCancel(ctx)
	}

	cmd := exec.CommandContext(recordingCtx, r.config.Command, r.buildPwRecordArgs()...)
	procexec.SetProcessGroup(cmd)
	cmd.Cancel = func() error {
		procexec.KillProcessGroup(cmd.Process.Pid)
		return nil
	}
	cmd.WaitDelay = 2 * time.Second
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", r.config.Command, err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.cancel = cancel
	r.pcm.Reset()
	r.readErr = nil
	r.mu.Unlock()

	r.recording.Store(true)
	log.Printf("Recording: started %s (pid %d)", r.config.Command, cmd.Process.Pid)

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Recording stderr: %s", scanner.Text())
		}
	}()

	r.wg.Add(1)
	go r.captureLoop(stdout)
	return nil
}

func (r *Recorder) captureLoop(stdout io.Reader) {
	defer func() {
		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.mu.Unlock()
		r.recording.Store(false)
		r.wg.Done()
	}()

	buffer := make([]byte, r.config.BufferSize)
	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			r.mu.Lock()
			r.pcm.Write(buffer[:n])
			r.mu.Unlock()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && !errors.Is(readErr, os.ErrClosed) {
				r.mu.Lock()
				r.readErr = fmt.Errorf("read audio: %w", readErr)
				r.mu.Unlock()
				log.Printf("Recording error: %v", readErr)
			}
			return
		}
	}
}

func (r *Recorder) halt() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Stop ends the capture, writes the buffered audio to a WAV file in the
// recordings directory and validates it. The file is removed again when
// validation fails.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	started := r.cancel != nil
	r.mu.Unlock()
	if !started {
		return "", ErrNotRecording
	}

	r.halt()

	r.mu.Lock()
	pcm := append([]byte(nil), r.pcm.Bytes()...)
	readErr := r.readErr
	r.pcm.Reset()
	r.mu.Unlock()

	if readErr != nil && len(pcm) == 0 {
		return "", readErr
	}

	if err := os.MkdirAll(r.config.Directory, 0755); err != nil {
		return "", fmt.Errorf("create recordings directory: %w", err)
	}
	name := fmt.Sprintf("dictation-%s-%s.wav", time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(r.config.Directory, name)

	if err := WriteWAV(path, pcm, r.config.SampleRate, r.config.Channels); err != nil {
		return "", err
	}

	duration, err := Validate(path, r.config.MinDuration)
	if err != nil {
		os.Remove(path)
		return "", err
	}

	log.Printf("Recording: wrote %s (%v, %d bytes of PCM)", path, duration, len(pcm))
	return path, nil
}

// Cancel ends the capture and discards the buffered audio.
func (r *Recorder) Cancel() {
	r.halt()
	r.mu.Lock()
	r.pcm.Reset()
	r.mu.Unlock()
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"--raw",
		"-", // stdout
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

// CheckPipeWireAvailable reports whether pw-record exists and PipeWire answers.
func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	if r.config.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	}
	if r.config.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	}
	if r.config.MinDuration < 0 {
		return fmt.Errorf("invalid MinDuration: %v", r.config.MinDuration)
	}
	if r.config.Directory == "" {
		return fmt.Errorf("invalid Directory: empty")
	}
	frameBytes := 2 * r.config.Channels
	if r.config.BufferSize%frameBytes != 0 {
		log.Printf("Recording: BufferSize %d not aligned to frame size %d; audio frames may split",
			r.config.BufferSize, frameBytes)
	}
	return nil
}
