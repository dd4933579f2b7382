// Package output writes run artifacts: the JSON result, the failure artifact and the run report.
package output

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/models"
)

// DefaultEmptyMessage is written when a result has no items and carries no message of its own
const DefaultEmptyMessage = "No hot tickers met the threshold within the lookback window."

// Writer persists RunResult artifacts as indented JSON
type Writer struct {
	path        string
	failurePath string
	logger      arbor.ILogger
	now         func() time.Time
}

// NewWriter creates a writer for path. failurePath defaults to path when empty.
func NewWriter(path, failurePath string, logger arbor.ILogger) *Writer {
	if failurePath == "" {
		failurePath = path
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Writer{
		path:        path,
		failurePath: failurePath,
		logger:      logger,
		now:         time.Now,
	}
}

// Path returns the artifact path
func (w *Writer) Path() string {
	return w.path
}

// Write serializes result to the artifact path. generated_at is always set and
// an empty result always carries a message.
func (w *Writer) Write(result *models.RunResult) error {
	out := *result
	if out.GeneratedAt.IsZero() {
		out.GeneratedAt = w.now().UTC()
	}
	if out.Items == nil {
		out.Items = []models.ScoredTicker{}
	}
	if len(out.Items) == 0 && out.Message == "" {
		out.Message = DefaultEmptyMessage
	}

	if err := writeJSON(w.path, &out); err != nil {
		return err
	}

	w.logger.Info().
		Str("path", w.path).
		Int("items", len(out.Items)).
		Msg("Run artifact written")
	return nil
}

// WriteFailure writes a minimal artifact explaining why the run failed
func (w *Writer) WriteFailure(cause error, windowHours int, threshold float64) error {
	// JSON cannot carry NaN or Inf; the cause already names the bad value
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		threshold = 0
	}
	failure := &models.RunResult{
		WindowHours: windowHours,
		Threshold:   threshold,
		GeneratedAt: w.now().UTC(),
		Items:       []models.ScoredTicker{},
		Message:     "Pipeline error: " + cause.Error(),
	}

	if err := writeJSON(w.failurePath, failure); err != nil {
		return err
	}

	w.logger.Warn().
		Str("path", w.failurePath).
		Err(cause).
		Msg("Failure artifact written")
	return nil
}

// writeJSON writes v atomically: a temp file in the target directory is renamed into place
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &common.SerializationError{Path: path, Err: err}
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &common.SerializationError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &common.SerializationError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &common.SerializationError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &common.SerializationError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &common.SerializationError{Path: path, Err: err}
	}
	return nil
}
