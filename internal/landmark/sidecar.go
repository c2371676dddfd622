package landmark

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibe-virtuoso/backend/internal/gesture"
)

// ErrSidecarClosed is returned once the detection process has exited.
var ErrSidecarClosed = errors.New("landmark sidecar closed")

// defaultCloseTimeout bounds how long Close waits for the process to exit
// on its own after its input is closed.
const defaultCloseTimeout = 3 * time.Second

type SidecarConfig struct {
	Command string
	Args    []string
	Env     []string // appended to the server's environment
	// CloseTimeout is how long Close waits before killing the process.
	CloseTimeout time.Duration
}

type sidecarRequest struct {
	ID     uint64 `json:"id"`
	Image  string `json:"image"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type sidecarHand struct {
	Handedness gesture.Handedness `json:"handedness"`
	Score      float64            `json:"score"`
	Landmarks  [][3]float64       `json:"landmarks"`
}

type sidecarResponse struct {
	ID    uint64        `json:"id"`
	Hands []sidecarHand `json:"hands"`
	Error string        `json:"error,omitempty"`
}

// Sidecar runs the landmark model as a child process speaking JSON lines:
// one request per frame on stdin, one response per request on stdout,
// matched by id. Requests may be in flight from many sessions at once.
type Sidecar struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	nextID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	waiters map[uint64]chan sidecarResponse
	closed  bool

	done         chan struct{}
	closeTimeout time.Duration
}

// StartSidecar launches the detection process.
func StartSidecar(cfg SidecarConfig) (*Sidecar, error) {
	if cfg.Command == "" {
		return nil, errors.New("landmark sidecar: empty command")
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("landmark sidecar stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("landmark sidecar stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("landmark sidecar start: %w", err)
	}

	s := &Sidecar{
		cmd:     cmd,
		stdin:   stdin,
		waiters:      make(map[uint64]chan sidecarResponse),
		done:         make(chan struct{}),
		closeTimeout: cfg.CloseTimeout,
	}
	if s.closeTimeout <= 0 {
		s.closeTimeout = defaultCloseTimeout
	}
	go s.readLoop(stdout)
	log.Printf("landmark sidecar started: %s (pid %d)", cfg.Command, cmd.Process.Pid)
	return s, nil
}

func (s *Sidecar) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var resp sidecarResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			log.Printf("landmark sidecar: bad response line: %v", err)
			continue
		}
		s.mu.Lock()
		ch, ok := s.waiters[resp.ID]
		delete(s.waiters, resp.ID)
		s.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("landmark sidecar: read error: %v", err)
	}

	s.mu.Lock()
	s.closed = true
	for id, ch := range s.waiters {
		close(ch)
		delete(s.waiters, id)
	}
	s.mu.Unlock()
	close(s.done)

	if err := s.cmd.Wait(); err != nil {
		log.Printf("landmark sidecar exited: %v", err)
	}
}

func (s *Sidecar) Detect(ctx context.Context, f Frame) ([]gesture.HandLandmarkSet, error) {
	id := s.nextID.Add(1)
	ch := make(chan sidecarResponse, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSidecarClosed
	}
	s.waiters[id] = ch
	s.mu.Unlock()

	line, err := json.Marshal(sidecarRequest{
		ID:     id,
		Image:  base64.StdEncoding.EncodeToString(f.Data),
		Format: f.Format,
		Width:  f.Width,
		Height: f.Height,
	})
	if err != nil {
		s.forget(id)
		return nil, err
	}
	line = append(line, '\n')

	s.writeMu.Lock()
	_, err = s.stdin.Write(line)
	s.writeMu.Unlock()
	if err != nil {
		s.forget(id)
		return nil, fmt.Errorf("landmark sidecar write: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrSidecarClosed
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("landmark sidecar: %s", resp.Error)
		}
		return convertHands(resp.Hands)
	case <-ctx.Done():
		// The reader drops the late response once the waiter is gone.
		s.forget(id)
		return nil, ctx.Err()
	}
}

func (s *Sidecar) forget(id uint64) {
	s.mu.Lock()
	delete(s.waiters, id)
	s.mu.Unlock()
}

// Close ends the request stream and waits for the process to exit. A
// process still running after the close timeout is killed.
func (s *Sidecar) Close() error {
	err := s.stdin.Close()
	select {
	case <-s.done:
		return err
	case <-time.After(s.closeTimeout):
	}

	log.Printf("landmark sidecar (pid %d) still running %s after end of input, killing", s.cmd.Process.Pid, s.closeTimeout)
	if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
		log.Printf("landmark sidecar: kill: %v", kerr)
	}
	select {
	case <-s.done:
	case <-time.After(s.closeTimeout):
		log.Printf("landmark sidecar: output still open after kill, giving up")
	}
	return err
}

func convertHands(in []sidecarHand) ([]gesture.HandLandmarkSet, error) {
	if len(in) > MaxHands {
		in = in[:MaxHands]
	}
	out := make([]gesture.HandLandmarkSet, 0, len(in))
	for i, h := range in {
		if len(h.Landmarks) != gesture.LandmarkCount {
			return nil, fmt.Errorf("hand %d: %d landmarks, want %d", i, len(h.Landmarks), gesture.LandmarkCount)
		}
		set := gesture.HandLandmarkSet{Handedness: h.Handedness, Score: h.Score}
		for j, p := range h.Landmarks {
			set.Points[j] = gesture.Point3{X: p[0], Y: p[1], Z: p[2]}
		}
		out = append(out, set)
	}
	return out, nil
}
