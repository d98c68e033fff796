package detection

import (
	"bytes"
	"fmt"
	"os"
)

// FileLine reads the beam state from a sysfs GPIO value file. The IR receiver
// pulls the line low while the beam is interrupted, so a "0" reads as broken.
type FileLine struct {
	path string
}

// NewFileLine returns a Line backed by the given GPIO value file.
func NewFileLine(path string) *FileLine {
	return &FileLine{path: path}
}

// Broken samples the line level.
func (l *FileLine) Broken() (bool, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false, fmt.Errorf("read beam line: %w", err)
	}
	value := bytes.TrimSpace(data)
	if len(value) == 0 {
		return false, fmt.Errorf("beam line %s is empty", l.path)
	}
	return value[0] == '0', nil
}
