package dictation

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultStopTimeout = 2 * time.Second

// CommandEngine runs an external recognizer process. The process reads the
// microphone itself and writes one JSON event per line to stdout:
//
//	{"results":[{"alternatives":[{"transcript":"hello","confidence":0.92}],"final":false}]}
//	{"error":"network"}
//
// Recognition settings are passed in JOT_SPEECH_* environment variables.
// The process is interrupted on Stop.
type CommandEngine struct {
	argv        []string
	log         zerolog.Logger
	lookPath    func(string) (string, error)
	stopTimeout time.Duration
}

// NewCommandEngine returns an engine running argv[0] with argv[1:].
func NewCommandEngine(argv []string, log zerolog.Logger) *CommandEngine {
	return &CommandEngine{
		argv:        argv,
		log:         log,
		lookPath:    exec.LookPath,
		stopTimeout: defaultStopTimeout,
	}
}

func (e *CommandEngine) Name() string {
	if len(e.argv) == 0 {
		return "command"
	}
	return "command:" + e.argv[0]
}

// Available reports whether the recognizer executable can be found.
func (e *CommandEngine) Available() bool {
	if len(e.argv) == 0 {
		return false
	}
	_, err := e.lookPath(e.argv[0])
	return err == nil
}

func (e *CommandEngine) Start(cfg Config, h Handler) (Recognition, error) {
	if len(e.argv) == 0 {
		return nil, errors.New("no recognizer command configured")
	}
	path, err := e.lookPath(e.argv[0])
	if err != nil {
		return nil, fmt.Errorf("find recognizer: %w", err)
	}

	cmd := exec.Command(path, e.argv[1:]...)
	cmd.Env = append(os.Environ(),
		"JOT_SPEECH_LANGUAGE="+cfg.Language,
		"JOT_SPEECH_CONTINUOUS="+strconv.FormatBool(cfg.Continuous),
		"JOT_SPEECH_INTERIM_RESULTS="+strconv.FormatBool(cfg.InterimResults),
		"JOT_SPEECH_MAX_ALTERNATIVES="+strconv.Itoa(cfg.MaxAlternatives),
	)
	cmd.Stderr = e.log.With().Str("stream", "recognizer").Logger()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recognizer: %w", err)
	}
	e.log.Debug().Int("pid", cmd.Process.Pid).Str("path", path).Msg("recognizer started")

	r := &commandRecognition{
		cmd:     cmd,
		log:     e.log,
		timeout: e.stopTimeout,
		done:    make(chan struct{}),
	}
	go r.read(stdout, h)
	return r, nil
}

type wireEvent struct {
	Results []Segment `json:"results"`
	Error   string    `json:"error"`
}

type commandRecognition struct {
	cmd      *exec.Cmd
	log      zerolog.Logger
	timeout  time.Duration
	stopping atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// read delivers events until stdout closes, then reaps the process.
func (r *commandRecognition) read(stdout io.Reader, h Handler) {
	defer close(r.done)

	finished := false
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if finished || r.stopping.Load() {
			continue
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			r.log.Warn().Err(err).Msg("skipping malformed recognizer event")
			continue
		}
		if ev.Error != "" {
			finished = true
			h.OnError(ErrorCode(ev.Error))
			// No Stop follows an error, so the recognition releases itself.
			go r.Stop()
			continue
		}
		if len(ev.Results) > 0 {
			h.OnResult(ev.Results)
		}
	}
	scanErr := sc.Err()
	waitErr := r.cmd.Wait()

	if finished || r.stopping.Load() {
		return
	}
	r.log.Warn().AnErr("read", scanErr).AnErr("wait", waitErr).Msg("recognizer exited unexpectedly")
	h.OnError(ErrorEnded)
}

func (r *commandRecognition) interrupt() {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Signal(os.Interrupt)
	}
}

func (r *commandRecognition) Stop() error {
	r.stopOnce.Do(func() {
		r.stopping.Store(true)
		r.interrupt()
		select {
		case <-r.done:
		case <-time.After(r.timeout):
			r.log.Warn().Dur("timeout", r.timeout).Msg("recognizer ignored interrupt, killing")
			_ = r.cmd.Process.Kill()
			<-r.done
		}
	})
	return nil
}
