package app

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"autodeck/internal/model"
	"autodeck/internal/storage"
)

const maxNameLength = 80

var sanitizeRegex = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// DeckPath returns where a deck for topic is written. An explicit output wins;
// a missing extension is added. Otherwise the name is derived from the topic
// inside outputDir.
func DeckPath(outputDir, topic, output string) string {
	if output != "" {
		if filepath.Ext(output) == "" {
			output += storage.DeckExt
		}
		return output
	}

	name := sanitizeForPath(topic)
	if name == "" {
		name = "untitled"
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = strings.TrimRight(string(runes[:maxNameLength]), "_")
	}
	return filepath.Join(outputDir, name+storage.DeckExt)
}

// assignPaths pins every request of a batch to its own deck file. Requests
// whose paths collide get "-2", "-3" and so on, in request order.
func assignPaths(outputDir string, reqs []model.TopicRequest) []model.TopicRequest {
	out := make([]model.TopicRequest, len(reqs))
	taken := make(map[string]bool, len(reqs))
	for i, req := range reqs {
		out[i] = req
		topic := req.Normalize().Topic
		if topic == "" {
			continue
		}

		path := DeckPath(outputDir, topic, req.OutputPath)
		if taken[path] {
			ext := filepath.Ext(path)
			base := strings.TrimSuffix(path, ext)
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
				if !taken[candidate] {
					path = candidate
					break
				}
			}
		}
		taken[path] = true
		out[i].OutputPath = path
	}
	return out
}

func sanitizeForPath(s string) string {
	s = strings.ToLower(s)
	s = sanitizeRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
