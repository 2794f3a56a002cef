package log

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"grandtree.dev/internal/sim/gesture"
	"grandtree.dev/internal/sim/scenestate"
)

const framesPrefix = "frames"

// TickRecord is one processed tracker frame and what the processor made of it.
type TickRecord struct {
	Tick uint64 `json:"tick"`
	// AtMS is the tick time in milliseconds since the session started.
	AtMS   int64           `json:"at_ms"`
	Mode   scenestate.Mode `json:"mode"`
	Frame  gesture.Frame   `json:"frame"`
	Events []gesture.Event `json:"events,omitempty"`
}

// SessionRecorder writes one session's tick records under <baseDir>/<session id>/.
type SessionRecorder struct {
	id  string
	dir string
	w   *JSONLZstdWriter
}

func NewSessionRecorder(baseDir string) *SessionRecorder {
	id := uuid.NewString()
	dir := filepath.Join(baseDir, id)
	return &SessionRecorder{id: id, dir: dir, w: NewJSONLZstdWriter(dir, framesPrefix)}
}

func (r *SessionRecorder) ID() string                   { return r.id }
func (r *SessionRecorder) Dir() string                  { return r.dir }
func (r *SessionRecorder) WriteTick(v TickRecord) error { return r.w.Write(v) }
func (r *SessionRecorder) Stats() (lines, bytes uint64) { return r.w.Stats() }
func (r *SessionRecorder) Close() error                 { return r.w.Close() }

// ReadSession streams a recorded session directory in order.
func ReadSession(dir string, fn func(TickRecord) error) error {
	files, err := ListFiles(dir, framesPrefix)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files in %s", framesPrefix, dir)
	}
	for _, path := range files {
		err := ReadJSONL(path, func(line []byte) error {
			var rec TickRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			return fn(rec)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
