package ingest

import (
	"bufio"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/qepting91/postwatch/internal/domain"
)

// LoadTargets reads the sources file: one profile URL per line, optionally
// followed by whitespace and a display name. Blank lines and lines starting
// with '#' are ignored. Lines that are not http(s) URLs are skipped
// (fail-soft), as are repeats of a URL already listed.
func LoadTargets(path string) ([]domain.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseTargets(f)
}

func ParseTargets(r io.Reader) ([]domain.Target, error) {
	scanner := bufio.NewScanner(stripBOM(r))

	var targets []domain.Target
	seen := make(map[string]struct{})
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		raw, name := fields[0], strings.Join(fields[1:], " ")
		if !validURL(raw) {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		targets = append(targets, domain.Target{
			URL:  raw,
			Name: name,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
