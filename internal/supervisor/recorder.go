package supervisor

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vibe-virtuoso/backend/internal/archive"
	"github.com/vibe-virtuoso/backend/internal/instrument"
)

type recording struct {
	*child
	instrument instrument.Name
	filename   string
	path       string
}

func recordingName(name instrument.Name) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s.wav", name, hex.EncodeToString(id[:]))
}

func (s *Supervisor) startRecorder(name instrument.Name) (*recording, error) {
	rc := s.cfg.Recorder
	if err := os.MkdirAll(rc.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", rc.Dir, err)
	}
	filename := recordingName(name)
	path := filepath.Join(rc.Dir, filename)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	args := append(append([]string(nil), rc.Args...), path)
	c, err := startChild(rc.Command, args, nil, "")
	if err != nil {
		return nil, err
	}
	log.Printf("supervisor: recording %s to %s (pid %d)", name, path, c.pid)
	return &recording{child: c, instrument: name, filename: filename, path: path}, nil
}

// stopRecorder ends the recording and hands it to the sink in the
// background.
func (s *Supervisor) stopRecorder(ctx context.Context, r *recording) {
	s.terminate(ctx, r.child, "recorder", s.cfg.Recorder.GracePeriod)

	rec := archive.Recording{
		Filename:        r.filename,
		Instrument:      r.instrument,
		DurationSeconds: time.Since(r.started).Seconds(),
		FilePath:        r.path,
	}
	sink := s.sink
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		res, err := sink.Save(ctx, rec)
		if err != nil {
			log.Printf("supervisor: saving recording %s: %v", rec.Filename, err)
			return
		}
		if res.RecordingID != "" {
			log.Printf("supervisor: recording %s saved as %s", rec.Filename, res.RecordingID)
		}
	}()
}
