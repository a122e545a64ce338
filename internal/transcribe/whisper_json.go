package transcribe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"audiototext/internal/domain"
)

// whisperJSON is the subset of whisper.cpp's --output-json document we use.
type whisperJSON struct {
	Params struct {
		Language  string `json:"language"`
		Translate bool   `json:"translate"`
	} `json:"params"`
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperJSON converts whisper.cpp output into a TranscriptionResult.
// Offsets are milliseconds; the full text is the concatenation of segment
// texts, as whisper itself reports it.
func parseWhisperJSON(data []byte) (domain.TranscriptionResult, error) {
	var doc whisperJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("decode transcript json: %w", err)
	}

	segments := make([]domain.Segment, 0, len(doc.Transcription))
	for _, item := range doc.Transcription {
		if item.Offsets.To < item.Offsets.From {
			return domain.TranscriptionResult{}, fmt.Errorf("segment ends before it starts: %d > %d", item.Offsets.From, item.Offsets.To)
		}
		segments = append(segments, domain.Segment{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  item.Text,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})

	var text strings.Builder
	for _, s := range segments {
		text.WriteString(s.Text)
	}

	lang := doc.Result.Language
	if lang == "" && doc.Params.Language != "auto" {
		lang = doc.Params.Language
	}

	return domain.TranscriptionResult{
		Text:     text.String(),
		Language: lang,
		Segments: segments,
	}, nil
}
