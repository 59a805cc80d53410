package worldstate

import (
	"bufio"
	"os"
	"path"
	"strings"
)

// IgnoreFileName is the ignore-pattern file read at a snapshot root.
const IgnoreFileName = ".vexignore"

// defaultIgnorePatterns covers version-control metadata, OS noise, build
// caches, common credential filenames, and the store directory itself
// (spec.md §4.2 "Directory hashing" step 2).
var defaultIgnorePatterns = []string{
	".git/", ".hg/", ".svn/",
	".DS_Store", "Thumbs.db",
	"__pycache__/", "*.pyc", "node_modules/", "dist/", "build/",
	".env", "*.pem", "*.key", "id_rsa", "id_ed25519",
	storeDirName + "/",
}

// ignorePattern is one parsed line from an ignore file.
type ignorePattern struct {
	raw       string
	negate    bool
	dirOnly   bool
	hasSlash  bool
	pattern   string
}

// ignoreSet is the combined default + user pattern set for one snapshot.
type ignoreSet struct {
	patterns []ignorePattern
}

func parseIgnoreLine(line string) (ignorePattern, bool) {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return ignorePattern{}, false
	}

	p := ignorePattern{raw: trimmed}
	if strings.HasPrefix(trimmed, "!") {
		p.negate = true
		trimmed = trimmed[1:]
	}
	if strings.HasSuffix(trimmed, "/") {
		p.dirOnly = true
		trimmed = strings.TrimSuffix(trimmed, "/")
	}
	p.hasSlash = strings.Contains(trimmed, "/")
	p.pattern = trimmed
	return p, true
}

// loadIgnoreSet reads the ignore file at root (if present) and combines it
// with the default pattern set.
func loadIgnoreSet(root string) (*ignoreSet, error) {
	set := &ignoreSet{}
	for _, raw := range defaultIgnorePatterns {
		if p, ok := parseIgnoreLine(raw); ok {
			set.patterns = append(set.patterns, p)
		}
	}

	f, err := os.Open(path.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p, ok := parseIgnoreLine(scanner.Text()); ok {
			set.patterns = append(set.patterns, p)
		}
	}
	return set, scanner.Err()
}

// matches reports whether relPath (always slash-separated, relative to the
// snapshot root) should be excluded. isDir tells whether relPath names a
// directory, for dirOnly patterns. Later patterns override earlier ones,
// same as .gitignore semantics, so the default set can be overridden by a
// user negation.
func (s *ignoreSet) matches(relPath string, isDir bool) bool {
	excluded := false
	base := path.Base(relPath)
	for _, p := range s.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		var subject string
		if p.hasSlash {
			subject = relPath
		} else {
			subject = base
		}
		ok, _ := path.Match(p.pattern, subject)
		if !ok && p.hasSlash {
			// Retry a slash-containing pattern against the subject with any
			// trailing slash removed; no prefix matching is done.
			ok, _ = path.Match(p.pattern, strings.TrimSuffix(subject, "/"))
		}
		if !ok {
			continue
		}
		if p.negate {
			excluded = false
		} else {
			excluded = true
		}
	}
	return excluded
}
