package suggest

import (
	"bufio"
	"fmt"
	"io/fs"
	"strings"
)

// LoadWordList reads one word per line from name in fsys. Lines are trimmed
// and lowercased; blank lines and repeated words are skipped. File order is
// preserved.
func LoadWordList(fsys fs.FS, name string) ([]string, error) {
	if fsys == nil {
		return nil, fmt.Errorf("suggest: load %s: no assets", name)
	}
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("suggest: load %s: %w", name, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("suggest: load %s: %w", name, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("suggest: load %s: word list is empty", name)
	}
	return words, nil
}
