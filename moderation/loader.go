package moderation

import (
	"bufio"
	"bytes"
	"c2c-client/errors"
	"embed"
	"io/fs"
	"path"
	"strings"
)

//go:embed blocklist/*.txt
var defaultLists embed.FS

// WordList carries the loaded words and the languages they came from.
type WordList struct {
	Words     []string
	Languages []string
}

// WordListLoader reads reserved words from an embedded directory,
// one .txt file per language and one word per line.
type WordListLoader struct {
	fs fs.FS
}

func NewWordListLoader(f fs.FS) *WordListLoader {
	return &WordListLoader{fs: f}
}

// LoadAll parses every .txt file under dir into a deduplicated list.
func (l *WordListLoader) LoadAll(dir string) (*WordList, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	seen := make(map[string]struct{})
	var words []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// Scanner copes with \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return &WordList{Words: words, Languages: languages}, nil
}

// DefaultBlocklist builds a Blocklist from the embedded lists plus extra words.
func DefaultBlocklist(extra ...string) (*Blocklist, error) {
	list, err := NewWordListLoader(defaultLists).LoadAll("blocklist")
	if err != nil {
		return nil, err
	}
	return NewBlocklist(append(list.Words, extra...))
}
