// Package source resolves job inputs to a local audio file, downloading
// remote media with yt-dlp when the input is a URL.
package source

import "strings"

// InputKind classifies a job's input source.
type InputKind int

const (
	KindLocalPath InputKind = iota
	KindURL
)

func (k InputKind) String() string {
	if k == KindURL {
		return "url"
	}
	return "local_path"
}

// Classify reports KindURL for inputs with a literal http:// or https:// prefix.
// Nothing else about the URL is validated.
func Classify(input string) InputKind {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return KindURL
	}
	return KindLocalPath
}
