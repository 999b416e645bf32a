package conversation

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Transcript is the serialized form of a State.
type Transcript struct {
	ID       string    `yaml:"id"`
	Messages []Message `yaml:"messages"`
}

// ToYAML marshals the current history of s.
func ToYAML(s *State) ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	t := Transcript{ID: s.ID, Messages: s.Messages()}
	return yaml.Marshal(t)
}

// FromYAML builds a State from a serialized transcript. The restored history
// must satisfy the tool pairing rules.
func FromYAML(b []byte) (*State, error) {
	var t Transcript
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, errors.Wrap(err, "could not parse transcript")
	}
	if err := ValidateToolPairing(t.Messages); err != nil {
		return nil, errors.Wrap(err, "invalid transcript")
	}
	s := NewState()
	if t.ID != "" {
		s.ID = t.ID
	}
	s.Append(t.Messages...)
	return s, nil
}

// SaveYAML writes the transcript of s to path.
func SaveYAML(path string, s *State) error {
	data, err := ToYAML(s)
	if err != nil {
		return errors.Wrap(err, "could not serialize transcript")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "could not write %s", path)
}

// LoadYAML reads a transcript from path.
func LoadYAML(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	return FromYAML(b)
}
