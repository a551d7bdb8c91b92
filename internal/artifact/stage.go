package artifact

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Stage collects the outputs of one run. Each output is written to a hidden
// sibling of its final path and only moved into place by Commit, so a failed
// run leaves the previous artifacts untouched.
type Stage struct {
	tag   string
	files []staged
}

type staged struct {
	tmp, final string
}

// NewStage returns an empty stage. tag keeps concurrent runs apart.
func NewStage(tag string) *Stage {
	return &Stage{tag: tag}
}

// Path registers final and returns the temporary path to write instead.
func (s *Stage) Path(final string) string {
	tmp := filepath.Join(filepath.Dir(final), "."+filepath.Base(final)+"."+s.tag+".tmp")
	s.files = append(s.files, staged{tmp: tmp, final: final})
	return tmp
}

// Commit moves every staged file to its final path and returns the final
// paths in registration order. Destinations are checked before anything is
// moved.
func (s *Stage) Commit() ([]string, error) {
	for _, f := range s.files {
		if _, err := os.Stat(f.tmp); err != nil {
			return nil, eris.Wrapf(err, "artifact: staged file for %s", f.final)
		}
		if info, err := os.Stat(f.final); err == nil && info.IsDir() {
			return nil, eris.Errorf("artifact: %s is a directory", f.final)
		}
	}

	out := make([]string, 0, len(s.files))
	for i, f := range s.files {
		if err := os.Rename(f.tmp, f.final); err != nil {
			s.files = s.files[i:]
			return out, eris.Wrapf(err, "artifact: move %s into place", f.final)
		}
		out = append(out, f.final)
	}
	s.files = nil
	return out, nil
}

// Discard removes staged files that were not committed. It is safe to call
// after Commit.
func (s *Stage) Discard() {
	for _, f := range s.files {
		_ = os.Remove(f.tmp)
	}
	s.files = nil
}
